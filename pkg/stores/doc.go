// Package stores persists checker runs and their findings in SQLite.
// The schema is created by embedded migrations; the database runs in WAL
// mode with foreign keys enabled.
package stores
