// Package db is the storage port of the SQL-backed repositories.
package db

// DB hands out the driver-specific connection. Repositories assert the
// concrete type they were written for.
type DB interface {
	Conn() any
}
