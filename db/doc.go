// Package db provides the connection facade shared by the catalog, item and
// constraints packages.
//
// A DB wraps a single database/sql connection for MySQL, PostgreSQL or
// SQLite. Statements are written with "?" placeholders and rewritten for
// PostgreSQL. Transactions nest: Begin increments a depth counter and only
// the outermost Commit reaches the engine, while Rollback always aborts the
// whole transaction.
//
//	d, err := db.Open(ctx, db.Config{Driver: "mysql", Host: "127.0.0.1", User: "root", Database: "shop"})
//	if err != nil {
//		return err
//	}
//	defer d.Close()
//
//	rs, err := d.Execute(ctx, "SELECT * FROM users WHERE id = ?", 1)
package db
