package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"text/tabwriter"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/syssam/rowmap/catalog"
	"github.com/syssam/rowmap/constraints"
	"github.com/syssam/rowmap/db"
	"github.com/syssam/rowmap/item"
)

// env is what every command runs against.
type env struct {
	conn   *db.DB
	out    io.Writer
	logger *slog.Logger
}

type command func(ctx context.Context, e *env, args []string) error

var commands = map[string]command{
	"columns":     runColumns,
	"get":         runGet,
	"candidates":  runCandidates,
	"constraints": runConstraints,
	"references":  runReferences,
}

var title = cases.Title(language.English)

func runColumns(ctx context.Context, e *env, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: expect <table>", errUsage)
	}
	cols, err := catalog.Discover(ctx, e.conn, args[0])
	if err != nil {
		return err
	}
	if cols.Len() == 0 {
		return fmt.Errorf("table %s has no columns", args[0])
	}
	w := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\t%s\n", title.String("column"), title.String("type"), title.String("key"))
	for _, name := range cols.Names {
		key := ""
		if name == cols.PrimaryKey {
			key = title.String("primary key")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", name, cols.Types[name], key)
	}
	return w.Flush()
}

func runGet(ctx context.Context, e *env, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: expect <table> <id>", errUsage)
	}
	id, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("%w: id must be a positive integer", errUsage)
	}
	it, err := item.New(ctx, e.conn, args[0], item.WithID(id))
	if err != nil {
		return err
	}
	fields := it.Fields()
	w := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	for _, k := range fields.Keys() {
		v := fields.Get(k)
		if v == nil {
			v = "NULL"
		}
		fmt.Fprintf(w, "%s\t%v\n", k, v)
	}
	return w.Flush()
}

// inspectorFlags are shared by candidates and constraints.
type inspectorFlags struct {
	pk     string
	exact  bool
	plural bool
	dryRun bool
}

func parseInspector(name string, args []string, withDryRun bool) (string, inspectorFlags, error) {
	var f inspectorFlags
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&f.pk, "pk", catalog.DefaultPrimaryKey, "primary key column name")
	fs.BoolVar(&f.exact, "exact", false, "only accept columns ending in _<pk>")
	fs.BoolVar(&f.plural, "plural", false, "reference plural table names")
	if withDryRun {
		fs.BoolVar(&f.dryRun, "dry-run", false, "report without altering tables")
	}
	if err := fs.Parse(args); err != nil {
		return "", f, fmt.Errorf("%w: %v", errUsage, err)
	}
	rest := fs.Args()
	if len(rest) == 0 {
		return "", f, fmt.Errorf("%w: expect <table>", errUsage)
	}
	// Accept flags after the table name too.
	if err := fs.Parse(rest[1:]); err != nil {
		return "", f, fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() > 0 {
		return "", f, fmt.Errorf("%w: unexpected %q", errUsage, fs.Arg(0))
	}
	return rest[0], f, nil
}

func (e *env) inspector(table string, f inspectorFlags) (*constraints.Inspector, error) {
	opts := []constraints.Option{
		constraints.WithPrimaryKeyColumn(f.pk),
		constraints.WithLogger(e.logger),
	}
	if f.exact {
		opts = append(opts, constraints.WithExactSuffix())
	}
	if f.plural {
		opts = append(opts, constraints.WithPluralTables())
	}
	return constraints.New(e.conn, table, opts...)
}

func runCandidates(ctx context.Context, e *env, args []string) error {
	table, f, err := parseInspector("candidates", args, false)
	if err != nil {
		return err
	}
	insp, err := e.inspector(table, f)
	if err != nil {
		return err
	}
	candidates, err := insp.DiscoverCandidates(ctx)
	if err != nil {
		return err
	}
	for _, c := range candidates {
		fmt.Fprintf(e.out, "%s_%s -> %s(%s)\n", c, insp.PrimaryKeyColumn(), insp.ReferencedTable(c), insp.PrimaryKeyColumn())
	}
	return nil
}

func runConstraints(ctx context.Context, e *env, args []string) error {
	table, f, err := parseInspector("constraints", args, true)
	if err != nil {
		return err
	}
	insp, err := e.inspector(table, f)
	if err != nil {
		return err
	}
	candidates, err := insp.DiscoverCandidates(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	if f.dryRun {
		for _, c := range candidates {
			exists, err := insp.HasConstraint(ctx, c)
			if err != nil {
				return err
			}
			state := "missing"
			switch {
			case exists:
				state = "exists"
			case c == constraints.ReservedCandidate:
				state = "reserved"
			}
			fmt.Fprintf(w, "%s_%s\t%s\t%s\n", c, insp.PrimaryKeyColumn(), insp.ReferencedTable(c), title.String(state))
		}
		return w.Flush()
	}
	report, err := insp.CreateConstraints(ctx, candidates)
	if err != nil {
		return err
	}
	for _, res := range report.Results {
		line := fmt.Sprintf("%s\t%s\t%s", res.Column, res.ReferencedTable, title.String(res.Outcome.String()))
		if res.Err != nil {
			line += "\t" + res.Err.Error()
		}
		fmt.Fprintln(w, line)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "%d created, %d skipped, %d failed\n", report.Created(), report.Skipped(), len(report.Failed()))
	return nil
}

func runReferences(ctx context.Context, e *env, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: expect <table>", errUsage)
	}
	insp, err := constraints.New(e.conn, args[0], constraints.WithLogger(e.logger))
	if err != nil {
		return err
	}
	refs, err := insp.ListReferences(ctx)
	if err != nil {
		return err
	}
	for _, r := range refs {
		fmt.Fprintln(e.out, r)
	}
	return nil
}
