// rowmap inspects tables and infers foreign keys from column names.
//
//	rowmap -driver sqlite -dsn file:shop.db columns users
//	ROWMAP_DSN="root:secret@tcp(127.0.0.1:3306)/shop" rowmap constraints -dry-run users
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/syssam/rowmap/db"
)

const usage = `usage: rowmap [-config file] [-dsn dsn] [-driver name] [-debug] <command> [args]

commands:
  columns <table>                                        list columns, marking the primary key
  get <table> <id>                                       print a row
  candidates [-pk id] [-exact] [-plural] <table>         list foreign key candidates
  constraints [-pk id] [-exact] [-plural] [-dry-run] <table>
                                                         add missing foreign keys
  references <table>                                     list columns referencing the table
`

// errUsage reports a malformed command line.
var errUsage = errors.New("invalid arguments")

type globalFlags struct {
	config string
	dsn    string
	driver string
	debug  bool
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command line and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var g globalFlags
	fs := flag.NewFlagSet("rowmap", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	fs.StringVar(&g.config, "config", "", "YAML configuration file")
	fs.StringVar(&g.dsn, "dsn", "", "data source name (overrides "+envDSN+")")
	fs.StringVar(&g.driver, "driver", "", "database driver: mysql, postgres or sqlite (overrides "+envDriver+")")
	fs.BoolVar(&g.debug, "debug", false, "log every statement")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}
	cmd, ok := commands[fs.Arg(0)]
	if !ok {
		fmt.Fprintf(stderr, "rowmap: unknown command %q\n", fs.Arg(0))
		fs.Usage()
		return 2
	}

	cfg, err := loadConfig(g.config)
	if err != nil {
		fmt.Fprintf(stderr, "rowmap: %v\n", err)
		return 1
	}
	cfg.apply(g)

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	conn, err := db.Open(ctx, cfg.Config, append(cfg.options(), db.WithLogger(logger))...)
	if err != nil {
		fmt.Fprintf(stderr, "rowmap: %v\n", err)
		return 1
	}
	defer conn.Close()

	env := &env{conn: conn, out: stdout, logger: logger}
	if err := cmd(ctx, env, fs.Args()[1:]); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(stderr, "rowmap %s: %v\n", fs.Arg(0), err)
			fs.Usage()
			return 2
		}
		fmt.Fprintf(stderr, "rowmap %s: %v\n", fs.Arg(0), err)
		return 1
	}
	return 0
}
