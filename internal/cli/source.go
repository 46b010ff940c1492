package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/roach88/guardgen/internal/ir"
	"github.com/roach88/guardgen/internal/typeexpr"
)

// sourceFile is a parsed declaration file.
type sourceFile struct {
	Path   string
	Digest string // ir.SourceDigest of the raw bytes
	File   *typeexpr.File
}

// loadSource reads and parses the declaration file at path.
func loadSource(path string) (*sourceFile, error) {
	if path == "" {
		return nil, withCode(ErrCodeNotFound, errors.New("no declaration source: pass a file or set source in "+DefaultConfigFile))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, withCode(ErrCodeNotFound, fmt.Errorf("source file not found: %s", path))
		}
		return nil, withCode(ErrCodeReadFailed, fmt.Errorf("reading source file: %w", err))
	}
	file, err := typeexpr.Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", path, err)
	}
	return &sourceFile{
		Path:   path,
		Digest: ir.SourceDigest(data),
		File:   file,
	}, nil
}

// parseTypeArg parses a requested type such as "User" or "Pair<string, number>".
func parseTypeArg(s string) (ir.Type, error) {
	t, err := typeexpr.ParseType(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("type %q: %w", s, err)
	}
	return t, nil
}

// outputName turns a requested type into a file name: Pair<string, number>
// becomes Pair_string_number.js.
func outputName(typeName string) string {
	var b strings.Builder
	pending := false
	for _, r := range typeName {
		if r == '_' || r == '$' || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9') {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	if b.Len() == 0 {
		return "validator.js"
	}
	return b.String() + ".js"
}
