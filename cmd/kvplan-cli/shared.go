package main

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"gopkg.in/yaml.v3"

	"github.com/kvplan/kvplan/pkg/dataset"
	"github.com/kvplan/kvplan/pkg/planner"
	"github.com/kvplan/kvplan/pkg/predicate"
	"github.com/kvplan/kvplan/pkg/rows"
	"github.com/kvplan/kvplan/pkg/store"
	"github.com/kvplan/kvplan/pkg/store/cql"
	"github.com/kvplan/kvplan/pkg/store/memstore"
	util_log "github.com/kvplan/kvplan/pkg/util/log"
)

// tableOptions selects the table, the rows to load into it and the filter.
type tableOptions struct {
	Table  string   `arg:"" help:"Name of a table defined in the config file."`
	Data   string   `arg:"" type:"existingfile" help:"Dataset to load (.json, .yaml, .yml or .parquet)."`
	Filter string   `short:"f" type:"existingfile" help:"YAML filter document."`
	Where  []string `short:"w" help:"Filter condition as column__lookup=value. Repeated conditions are joined with AND."`
}

type session struct {
	logger  log.Logger
	table   *store.Table
	store   *memstore.Store
	planner *planner.Planner
}

func newSession(opts *globalOptions, t *tableOptions) (*session, error) {
	lvl, err := util_log.ParseLevel(opts.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := util_log.InitLogger(opts.LogFormat, lvl)

	cfg, err := loadConfig(opts.ConfigFile, opts.ConfigExpandEnv)
	if err != nil {
		return nil, err
	}
	if opts.AllowInefficient {
		cfg.Planner.AllowInefficientQueries = true
	}
	for _, w := range cfg.Planner.CheckConfig() {
		level.Warn(logger).Log("msg", w.Message, "explain", w.Explain)
	}

	registry, err := store.NewRegistryFromConfig(cfg.Tables)
	if err != nil {
		return nil, err
	}
	table, err := registry.Get(t.Table)
	if err != nil {
		return nil, fmt.Errorf("%w (known tables: %s)", err, strings.Join(registry.Names(), ", "))
	}

	rs, err := dataset.Load(t.Data)
	if err != nil {
		return nil, err
	}
	s := memstore.New(table, logger)
	if err := s.Insert(rs...); err != nil {
		return nil, fmt.Errorf("failed to load %s into table %s: %w", t.Data, table.Name, err)
	}
	level.Info(logger).Log("msg", "dataset loaded", "table", table.Name, "rows", s.Len())

	renderer, err := cql.NewRenderer(table.Name, table.Columns, cql.DefaultCacheSize)
	if err != nil {
		return nil, err
	}

	p := planner.New(cfg.Planner, s,
		planner.WithLogger(logger),
		planner.WithRenderer(renderer),
		planner.WithDiagnosticSink(planner.DiagnosticSinkFunc(func(d planner.Diagnostic) {
			fmt.Fprintf(os.Stderr, "warning: %s: %s\n", d.Message, d.Clause)
		})),
	)

	filter, err := t.filter()
	if err != nil {
		return nil, err
	}
	if err := p.AddFilters(filter); err != nil {
		return nil, err
	}

	return &session{logger: logger, table: table, store: s, planner: p}, nil
}

// filter combines the filter document and the --where conditions.
func (t *tableOptions) filter() (predicate.Node, error) {
	root := &predicate.Group{Connector: predicate.And}

	if t.Filter != "" {
		buff, err := os.ReadFile(t.Filter)
		if err != nil {
			return nil, fmt.Errorf("failed to read filter %s: %w", t.Filter, err)
		}
		n, err := predicate.ParseFilter(buff)
		if err != nil {
			return nil, fmt.Errorf("failed to parse filter %s: %w", t.Filter, err)
		}
		if n != nil {
			root.Children = append(root.Children, n)
		}
	}

	for _, w := range t.Where {
		key, raw, ok := strings.Cut(w, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid condition %q, expected column__lookup=value", w)
		}
		// values are YAML scalars or flow sequences, so 5 is a number and [1, 2] a list
		var v any
		if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("invalid value in condition %q: %w", w, err)
		}
		c, err := predicate.ParseCondition(key, v)
		if err != nil {
			return nil, fmt.Errorf("invalid condition %q: %w", w, err)
		}
		root.Children = append(root.Children, c)
	}
	return root, nil
}

// columns lists the declared columns, or every column seen when the table
// declares none.
func (s *session) columns(rs []rows.Row) []string {
	if len(s.table.Columns) > 0 {
		return s.table.Columns
	}
	seen := map[string]struct{}{}
	cols := append([]string(nil), s.table.Layout.KeyColumns()...)
	for _, c := range cols {
		seen[c] = struct{}{}
	}
	var extra []string
	for _, r := range rs {
		for c := range r {
			if _, ok := seen[c]; !ok {
				seen[c] = struct{}{}
				extra = append(extra, c)
			}
		}
	}
	slices.Sort(extra)
	return append(cols, extra...)
}
