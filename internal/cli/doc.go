// Package cli implements the command-line interface for devent.
//
// The cli package provides the Cobra-based CLI that stands in for the
// D-Event pages: browsing and managing events, registering attendees through
// the mock e-wallet checkout, favorites, dashboard statistics and JSON/HTML
// import and export. Every command goes through the storage package, which
// owns the persisted collections; the CLI only validates input and formats
// output (text/JSON).
package cli
