// Package postgres provides PostgreSQL implementations of the store
// interfaces. All implementations accept a store.DBTX, so they work
// against either a connection pool or a transaction, and route database
// errors through MapError to keep driver details out of callers.
package postgres
