package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/Konsultn-Engineering/pgswarm/driver"
	"github.com/Konsultn-Engineering/pgswarm/param"
	pluralizer "github.com/gertd/go-pluralize"
	"github.com/spf13/cobra"
)

var pluralizeClient = pluralizer.NewClient()

func newQueryCmd(opts *options) *cobra.Command {
	var named map[string]string

	cmd := &cobra.Command{
		Use:   "query SQL [ARGS...]",
		Short: "Run a query and print its rows",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer e.Close(context.Background())

			st, err := e.ExecuteQuery(cmd.Context(), args[0], buildParams(args[1:], named))
			if err != nil {
				return err
			}
			defer st.Close()

			cols, err := st.Columns(cmd.Context())
			if errors.Is(err, driver.ErrNotFound) {
				fmt.Fprintln(cmd.OutOrStdout(), countLine(0, ""))
				return nil
			}
			if err != nil {
				return err
			}
			rows, err := st.FetchAllNumeric(cmd.Context())
			if err != nil {
				return err
			}
			return printRows(cmd.OutOrStdout(), cols, rows)
		},
	}
	cmd.Flags().StringToStringVar(&named, "param", nil, "named parameter, name=value (repeatable)")
	return cmd
}

func newExecCmd(opts *options) *cobra.Command {
	var named map[string]string

	cmd := &cobra.Command{
		Use:   "exec SQL [ARGS...]",
		Short: "Run a statement and print the affected row count",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer e.Close(context.Background())

			n, err := e.ExecuteStatement(cmd.Context(), args[0], buildParams(args[1:], named))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), countLine(n, "affected"))
			return nil
		},
	}
	cmd.Flags().StringToStringVar(&named, "param", nil, "named parameter, name=value (repeatable)")
	return cmd
}

// buildParams passes command line values through as untyped text and leaves
// their types to the server.
func buildParams(positional []string, named map[string]string) param.Params {
	var p param.Params
	for _, v := range positional {
		p.Ordinal = append(p.Ordinal, v)
	}
	if len(named) > 0 {
		p.Named = make(map[string]any, len(named))
		for k, v := range named {
			p.Named[k] = v
		}
	}
	return p
}

func printRows(w io.Writer, cols []string, rows [][]any) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(cols, "\t"))
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = formatValue(v)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, countLine(int64(len(rows)), ""))
	return err
}

func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return fmt.Sprintf("\\x%x", v)
	default:
		return fmt.Sprint(v)
	}
}

func countLine(n int64, suffix string) string {
	line := pluralizeClient.Pluralize("row", int(n), true)
	if suffix != "" {
		line += " " + suffix
	}
	return "(" + line + ")"
}
