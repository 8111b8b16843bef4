package main

import (
	"fmt"

	"github.com/kvplan/kvplan/pkg/rows"
)

type explainCmd struct {
	tableOptions

	Order string `short:"o" help:"Comma separated ordering, prefix a column with - for descending."`
}

func (cmd *explainCmd) Run(opts *globalOptions) error {
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

	out, err := s.planner.Explain()
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}
