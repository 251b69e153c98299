package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/mitranim/rql"
	"github.com/spf13/cobra"
)

func newSqlCmd() *cobra.Command {
	var isJson bool

	cmd := &cobra.Command{
		Use:   `sql <query>`,
		Short: `Print the SQL generated for an RQL query`,
		Long: `Translate an RQL query over the articles collection into an SQL condition,
ordering and window, and print them with the query arguments.

Examples:
  rqlapi sql 'and(ge(rating,3),like(title,*sql*))&sort(-rating)&limit(10)'
  rqlapi sql --json '["or", ["eq", "status", "draft"], ["eq", "published", null]]'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var query rql.Query
			var err error
			if isJson {
				err = json.Unmarshal([]byte(args[0]), &query)
			} else {
				query, err = rql.ParseQuery(args[0])
			}
			if err != nil {
				return err
			}
			return printSql(cmd.OutOrStdout(), query)
		},
	}

	cmd.Flags().BoolVar(&isJson, `json`, false, `read the filter in the JSON form`)
	return cmd
}

func printSql(out io.Writer, query rql.Query) error {
	cond := rql.CondFor(Article{})
	err := cond.Filter(query)
	if err != nil {
		return err
	}

	ords := rql.OrdsFor(Article{})
	err = ords.FromSort(query.Sort)
	if err != nil {
		return err
	}

	text, args := cond.Reify()
	fmt.Fprintf(out, "where %v\n", text)
	if !ords.IsEmpty() {
		fmt.Fprintf(out, "%v\n", ords.String())
	}
	if query.Limit != nil {
		fmt.Fprintf(out, "limit %v offset %v\n", query.Limit.Limit, query.Limit.Offset)
	}
	for i, arg := range args {
		fmt.Fprintf(out, "$%v = %#v\n", i+1, arg)
	}
	return nil
}
