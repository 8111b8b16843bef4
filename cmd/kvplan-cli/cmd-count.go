package main

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
)

type countCmd struct {
	tableOptions
}

func (cmd *countCmd) Run(opts *globalOptions) error {
	s, err := newSession(opts, &cmd.tableOptions)
	if err != nil {
		return err
	}

	count, err := s.planner.Count(context.Background())
	if err != nil {
		return err
	}
	fmt.Println(humanize.Comma(int64(count)))
	return nil
}
