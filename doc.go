// Package rowmap is a small relational database access layer.
//
// It is made of a connection facade and the components built on it:
//
//   - db: a connection wrapper with prepared statements, result sets and
//     reference-counted transactions.
//   - catalog: runtime column discovery from the database's metadata catalog.
//   - item: a generic row entity ("active record") that loads, mutates and
//     persists one table row without a typed schema.
//   - constraints: foreign key discovery and creation based on the
//     <table>_<primarykey> column naming convention.
//
// # Quick Start
//
//	conn, err := db.Open(ctx, db.Config{
//	    Driver:   dialect.MySQL,
//	    Host:     "localhost",
//	    User:     "app",
//	    Password: "secret",
//	    Database: "shop",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer conn.Close()
//
//	user, err := item.New(ctx, conn, "users")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	user.Set("name", "Athos")
//	id, err := user.Save(ctx)
//
// # Errors
//
// The root package defines the error kinds shared by all packages:
// NotFoundError, ConnectionError, ConfigurationError and ProgrammingError.
// Each matches its sentinel with errors.Is:
//
//	if errors.Is(err, rowmap.ErrNotFound) { ... }
package rowmap
