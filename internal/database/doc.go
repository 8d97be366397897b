// Package database provides SQLite-based run history for aurorareport.
//
// Every report-generation run can be stored with its records so that later
// runs can be compared against it: which images started failing, which were
// fixed and which outputs changed although they still match.
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. Sufficient performance for our use case
// 4. WAL mode lets the history command read while a run writes
package database
