// Package storage is the data-access layer for devent.
//
// A Manager is a stateless facade over a kv.Store namespace holding three
// collections: events, registrations and favorites. Each collection is one
// JSON array under one key, and every mutation reads the whole collection,
// changes it in memory and writes it back with a single Set. Computed views
// such as categories, statistics and search results are derived on every
// call.
//
// Reads never fail: an unreadable or corrupt collection is logged and
// treated as empty. Writes return an error wrapping ErrWriteFailed, and the
// previously stored collection is left untouched.
package storage
