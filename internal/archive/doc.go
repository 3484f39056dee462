// Package archive keeps a SQLite history of generation results so a bad
// ticket can be traced back to the raw model reply that produced it.
//
// The schema is versioned; a database written by a different version is
// rejected with ErrSchemaMismatch instead of being migrated.
package archive
