package store

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/kvplan/kvplan/pkg/predicate"
)

var (
	ErrTableNotFound = errors.New("table not found")
	ErrTableExists   = errors.New("table already registered")
)

// TableConfig defines a table in the config file.
type TableConfig struct {
	Name    string           `yaml:"name"`
	Columns []string         `yaml:"columns"`
	Layout  predicate.Layout `yaml:",inline"`
	Options TableOptions     `yaml:",inline"`
}

// Validate checks that every key and indexed column is declared and that the
// table has a partition key.
func (c *TableConfig) Validate() error {
	if c.Name == "" {
		return errors.New("table name must be set")
	}
	if len(c.Layout.PartitionColumns) == 0 {
		return fmt.Errorf("table %s: at least one partition column is required", c.Name)
	}
	if c.Options.FetchSize < 0 {
		return fmt.Errorf("table %s: fetch_size must not be negative", c.Name)
	}

	seen := map[string]struct{}{}
	for _, col := range c.Layout.KeyColumns() {
		if _, ok := seen[col]; ok {
			return fmt.Errorf("table %s: column %s is used twice in the primary key", c.Name, col)
		}
		seen[col] = struct{}{}
	}
	if len(c.Columns) == 0 {
		return nil
	}
	for _, col := range append(c.Layout.KeyColumns(), c.Layout.IndexedColumns...) {
		if !slices.Contains(c.Columns, col) {
			return fmt.Errorf("table %s: column %s is not declared", c.Name, col)
		}
	}
	return nil
}

// Table is a registered table definition.
type Table struct {
	Name    string
	Columns []string
	Layout  predicate.Layout
	Options TableOptions
}

// Registry holds table definitions for the lifetime of an application. It is
// owned by the caller and passed to the adapters that need it.
type Registry struct {
	mtx    sync.RWMutex
	tables map[string]*Table
}

func NewRegistry() *Registry {
	return &Registry{tables: map[string]*Table{}}
}

// NewRegistryFromConfig validates and registers every table in cfgs.
func NewRegistryFromConfig(cfgs []TableConfig) (*Registry, error) {
	r := NewRegistry()
	for i := range cfgs {
		if err := cfgs[i].Validate(); err != nil {
			return nil, err
		}
		if _, err := r.Register(cfgs[i]); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Register(cfg TableConfig) (*Table, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if _, ok := r.tables[cfg.Name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrTableExists, cfg.Name)
	}
	t := &Table{
		Name:    cfg.Name,
		Columns: slices.Clone(cfg.Columns),
		Layout:  cfg.Layout,
		Options: cfg.Options,
	}
	r.tables[cfg.Name] = t
	return t, nil
}

func (r *Registry) Get(name string) (*Table, error) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	t, ok := r.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	return t, nil
}

// Names returns the registered table names in sorted order.
func (r *Registry) Names() []string {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	names := make([]string, 0, len(r.tables))
	for n := range r.tables {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
