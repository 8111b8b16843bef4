package main

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
)

type deleteCmd struct {
	tableOptions
}

func (cmd *deleteCmd) Run(opts *globalOptions) error {
	s, err := newSession(opts, &cmd.tableOptions)
	if err != nil {
		return err
	}

	deleted, err := s.planner.Delete(context.Background())
	if err != nil {
		return err
	}

	stats := s.store.Stats()
	fmt.Printf("deleted %s rows, %s remaining (%s queries, %s pages)\n",
		humanize.Comma(int64(deleted)),
		humanize.Comma(int64(s.store.Len())),
		humanize.Comma(stats.Queries),
		humanize.Comma(stats.PagesFetched),
	)
	return nil
}
