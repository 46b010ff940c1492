package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainSource   = "guardgen/source/v1"
	DomainArtifact = "guardgen/artifact/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SourceDigest hashes declaration source text.
func SourceDigest(src []byte) string {
	return hashWithDomain(DomainSource, src)
}

// ArtifactKey computes the cache key of a compiled validator.
// options must be canonical-JSON compatible (see MarshalCanonical).
func ArtifactKey(sourceDigest, typeName string, options map[string]any) (string, error) {
	obj := map[string]any{
		"source":  sourceDigest,
		"type":    typeName,
		"options": options,
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("ArtifactKey: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainArtifact, canonical), nil
}
