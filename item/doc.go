// Package item implements a schema-shaped mutable record bound to one
// table.
//
// An Item reads its columns from the catalog, loads a row by primary key,
// tracks changes made through Set and writes them back with generated
// INSERT, UPDATE and DELETE statements:
//
//	it, err := item.New(ctx, conn, "users")
//	if err != nil {
//		return err
//	}
//	it.Set("name", "Aramis")
//	id, err := it.Save(ctx)
package item
