// Package store provides SQLite-based persistence for credential status
// records.
//
// The store is a queryable mirror of the append-only status log. The server
// attaches it as a statuslog.Sink; the CLI opens the same database to list
// and filter records.
//
// # Usage
//
//	db, err := store.Open("/var/lib/keyissuer/status.db")
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
// # Thread Safety
//
// The store is safe for concurrent use. SQLite WAL mode lets the CLI read
// while the server writes.
package store
