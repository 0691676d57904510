// Package kv provides the persistent key-value namespace that backs the
// devent storage layer.
//
// A Store holds string values addressed by string keys, the same contract a
// browser's localStorage offers. Implementations live side by side: an
// in-memory map for tests and ephemeral runs, a single JSON file per
// namespace on disk, a Postgres table, and a file inside a private GitHub
// Gist. Stores that can write several keys at once implement Batcher.
package kv
