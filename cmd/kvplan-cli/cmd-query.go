package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/kvplan/kvplan/pkg/rows"
)

type queryCmd struct {
	tableOptions

	Order  string `short:"o" help:"Comma separated ordering, prefix a column with - for descending, e.g. -c,d."`
	Offset int    `default:"0" help:"Number of matching rows to skip."`
	Limit  int    `default:"-1" help:"Maximum number of rows to print, -1 for all."`
}

func (cmd *queryCmd) Run(opts *globalOptions) error {
	s, err := newSession(opts, &cmd.tableOptions)
	if err != nil {
		return err
	}

	ordering, err := rows.ParseSortSpecs(cmd.Order)
	if err != nil {
		return err
	}
	if err := s.planner.OrderBy(ordering); err != nil {
		return err
	}

	high := rows.Unbounded
	if cmd.Limit >= 0 {
		high = cmd.Offset + cmd.Limit
	}

	ctx := context.Background()
	it, err := s.planner.Fetch(ctx, cmd.Offset, high)
	if err != nil {
		return err
	}
	res, _, err := rows.Collect(ctx, it, rows.Unbounded)
	if err != nil {
		return err
	}

	cols := s.columns(res)
	w := table.NewWriter()
	w.SetOutputMirror(os.Stdout)
	header := make(table.Row, 0, len(cols))
	for _, c := range cols {
		header = append(header, c)
	}
	w.AppendHeader(header)
	for _, r := range res {
		tr := make(table.Row, 0, len(cols))
		for _, c := range cols {
			tr = append(tr, r.Get(c).String())
		}
		w.AppendRow(tr)
	}
	w.Render()

	fmt.Printf("%s rows\n", humanize.Comma(int64(len(res))))
	return nil
}
