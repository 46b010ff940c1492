// Package store provides a SQLite-backed cache of compiled validators.
//
// Each artifact is the rendered JavaScript for one type of one source
// file under one set of compile options. The key is computed by
// ir.ArtifactKey (RFC 8785 canonical JSON and SHA-256 with domain
// separation), so identical inputs always map to the same row.
//
// # Ordering
//
// Artifacts carry a logical seq assigned on insert. Listings use
// ORDER BY seq ASC, key COLLATE BINARY ASC and never wall-clock time,
// so output is identical across runs.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package store
