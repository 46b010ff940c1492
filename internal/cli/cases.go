package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/guardgen/internal/validator"
)

// Expectations for a check case.
const (
	ExpectPass = "pass"
	ExpectFail = "fail"
)

// CaseFile is a YAML (or JSON) file of values to check against one type.
//
//	type: User
//	cases:
//	  - name: complete
//	    value: {name: Ada, tags: !set [admin]}
//	  - name: missing name
//	    value: {}
//	    expect: fail
//
// Values use the JSON data model. The !set and !map tags build Set and
// Map values (a !map is a sequence of [key, value] pairs), !undefined is
// the absent value, and a case without a value checks undefined.
type CaseFile struct {
	Type  string `yaml:"type"`
	Cases []Case `yaml:"cases"`
}

// Case is one value and its expected outcome.
type Case struct {
	Name   string    `yaml:"name"`
	Value  yaml.Node `yaml:"value"`
	Expect string    `yaml:"expect"` // "pass" (default) or "fail"
}

// LoadCases reads and decodes a case file. Unknown fields are rejected.
func LoadCases(path string) (*CaseFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, withCode(ErrCodeNotFound, fmt.Errorf("case file not found: %s", path))
		}
		return nil, withCode(ErrCodeReadFailed, fmt.Errorf("reading case file: %w", err))
	}
	return parseCases(path, data)
}

func parseCases(path string, data []byte) (*CaseFile, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var file CaseFile
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, withCode(ErrCodeBadCases, fmt.Errorf("%s: empty case file", path))
		}
		return nil, withCode(ErrCodeBadCases, fmt.Errorf("%s: %w", path, err))
	}
	for i, c := range file.Cases {
		if c.Name == "" {
			file.Cases[i].Name = fmt.Sprintf("case %d", i+1)
		}
		switch c.Expect {
		case "":
			file.Cases[i].Expect = ExpectPass
		case ExpectPass, ExpectFail:
		default:
			return nil, withCode(ErrCodeBadCases, fmt.Errorf("%s:%d: expect must be %q or %q, got %q",
				path, c.Value.Line, ExpectPass, ExpectFail, c.Expect))
		}
	}
	return &file, nil
}

// DecodedValue converts the case value into the validator's value model.
func (c *Case) DecodedValue() (any, error) {
	if c.Value.Kind == 0 {
		return validator.Undefined, nil
	}
	d := &valueDecoder{expanding: make(map[*yaml.Node]bool)}
	return d.decode(&c.Value)
}

// maxAliasExpansions bounds the aliases followed while decoding one case
// value, so nested anchors cannot expand exponentially.
const maxAliasExpansions = 10000

// valueDecoder walks a case value node. yaml.v3 only checks aliases when
// it decodes into Go values, so a retained yaml.Node can still hold an
// alias that points back into its own anchor.
type valueDecoder struct {
	expanding  map[*yaml.Node]bool // alias targets being decoded
	expansions int
}

func (d *valueDecoder) decode(n *yaml.Node) (any, error) {
	switch n.Tag {
	case "!undefined":
		return validator.Undefined, nil
	case "!set":
		items, err := d.sequence(n)
		if err != nil {
			return nil, err
		}
		return validator.NewSet(items...), nil
	case "!map":
		pairs, err := d.sequence(n)
		if err != nil {
			return nil, err
		}
		m := validator.NewMap()
		for _, p := range pairs {
			kv, ok := p.([]any)
			if !ok || len(kv) != 2 {
				return nil, fmt.Errorf("line %d: !map entries must be [key, value] pairs", n.Line)
			}
			m.Set(kv[0], kv[1])
		}
		return m, nil
	}

	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return validator.Undefined, nil
		}
		return d.decode(n.Content[0])
	case yaml.AliasNode:
		return d.alias(n)
	case yaml.SequenceNode:
		return d.sequence(n)
	case yaml.MappingNode:
		obj := make(map[string]any, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			v, err := d.decode(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			obj[n.Content[i].Value] = v
		}
		return obj, nil
	}

	var v any
	if err := n.Decode(&v); err != nil {
		return nil, fmt.Errorf("line %d: %w", n.Line, err)
	}
	return v, nil
}

func (d *valueDecoder) alias(n *yaml.Node) (any, error) {
	if d.expanding[n.Alias] {
		return nil, fmt.Errorf("line %d: alias %q contains itself", n.Line, n.Value)
	}
	d.expansions++
	if d.expansions > maxAliasExpansions {
		return nil, fmt.Errorf("line %d: more than %d alias expansions", n.Line, maxAliasExpansions)
	}
	d.expanding[n.Alias] = true
	defer delete(d.expanding, n.Alias)
	return d.decode(n.Alias)
}

func (d *valueDecoder) sequence(n *yaml.Node) ([]any, error) {
	if n.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("line %d: %s needs a sequence", n.Line, n.Tag)
	}
	items := make([]any, 0, len(n.Content))
	for _, c := range n.Content {
		v, err := d.decode(c)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return items, nil
}
