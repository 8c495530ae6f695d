// Package store manages pipeline persistence backed by SQLite.
//
// All three services share one database file; each process owns its own
// connection pool. Every unit of work (one day, one article, one message) is
// a single transaction, so a crash between cycles never leaves half-applied
// state. Writes retry on SQLITE_BUSY with bounded backoff because the
// services run as separate processes against the same file.
package store
