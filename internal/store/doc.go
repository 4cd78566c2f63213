// Package store keeps the run history in SQLite.
//
// Every analyze invocation records a run row (UUID primary key) that moves
// from running to completed, failed, or review. Frame outcomes are written as
// analyses finish, and the machine-readable summary is stored with the
// completed run so the history and show commands work without touching the
// output directory. The schema is embedded and versioned; a database created
// by another version is rejected rather than migrated.
package store
