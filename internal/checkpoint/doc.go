// Package checkpoint persists the enumeration cursor between runs.
//
// The cursor is a single identifier written to a plain text file. It names
// the most recently started work, so a resumed run re-visits it before
// moving on; every write that matters has already been made idempotent
// downstream. The file is removed when a run completes, which is the only
// completion marker the engine leaves behind.
package checkpoint
