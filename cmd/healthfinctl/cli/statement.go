package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/healthfin/healthfin/internal/access"
	"github.com/healthfin/healthfin/internal/statement"
)

// Generator produces statements.
type Generator interface {
	Generate(ctx context.Context, req statement.Request, user access.UserContext) (statement.Statement, error)
}

// systemUser runs CLI statements with unrestricted scope.
var systemUser = access.UserContext{UserID: "healthfinctl", Role: access.RoleSuperAdmin}

// WriteStatement generates a statement and writes it as JSON or a table.
func WriteStatement(ctx context.Context, w io.Writer, gen Generator, req statement.Request, format string) error {
	stmt, err := gen.Generate(ctx, req, systemUser)
	if err != nil {
		return err
	}
	switch strings.ToLower(format) {
	case "", "table":
		return writeTable(w, stmt)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(stmt)
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

func writeTable(w io.Writer, stmt statement.Statement) error {
	ids := make([]int64, 0, len(stmt.Facilities))
	for _, f := range stmt.Facilities {
		ids = append(ids, f.ID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	header := []string{"Code", "Name"}
	for _, id := range ids {
		header = append(header, fmt.Sprintf("#%d", id))
	}
	header = append(header, "Total")
	fmt.Fprintln(tw, strings.Join(header, "\t")+"\t")

	var walk func(rows []statement.ActivityRow)
	walk = func(rows []statement.ActivityRow) {
		for _, row := range rows {
			cells := []string{row.Code, strings.Repeat("  ", row.Level) + row.Name}
			for _, id := range ids {
				cells = append(cells, row.Values[id].StringFixed(2))
			}
			cells = append(cells, row.Total.StringFixed(2))
			fmt.Fprintln(tw, strings.Join(cells, "\t")+"\t")
			walk(row.Items)
		}
	}
	walk(stmt.Rows)
	if len(stmt.MissingCatalog) > 0 {
		fmt.Fprintf(tw, "missing catalog: %v\t\n", stmt.MissingCatalog)
	}
	return tw.Flush()
}
