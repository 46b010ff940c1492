package testutil

// FixedIDGenerator returns the same session ID every time.
//
// Sessions built with it log and store byte-identical session IDs, so
// golden output that mentions a session stays stable across runs.
//
// Thread-safety: FixedIDGenerator is stateless and safe for concurrent use.
type FixedIDGenerator struct {
	id string
}

// NewFixedIDGenerator creates a generator that always returns id.
// If id is empty, Generate() returns "test-session".
func NewFixedIDGenerator(id string) *FixedIDGenerator {
	if id == "" {
		id = "test-session"
	}
	return &FixedIDGenerator{id: id}
}

// Generate returns the fixed ID.
//
// Implements compiler.IDGenerator.
func (g *FixedIDGenerator) Generate() string {
	return g.id
}
