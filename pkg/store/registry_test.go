package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/kvplan/kvplan/pkg/predicate"
)

func TestTableConfigYAML(t *testing.T) {
	var cfg TableConfig
	err := yaml.Unmarshal([]byte(`
name: events
columns: [p, c, kind]
partition_columns: [p]
clustering_columns: [c]
indexed_columns: [kind]
allow_inefficient_queries: true
fetch_size: 100
`), &cfg)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Equal(t, predicate.Layout{
		PartitionColumns:  []string{"p"},
		ClusteringColumns: []string{"c"},
		IndexedColumns:    []string{"kind"},
	}, cfg.Layout)
	require.NotNil(t, cfg.Options.AllowInefficientQueries)
	require.True(t, *cfg.Options.AllowInefficientQueries)
	require.Equal(t, 100, cfg.Options.FetchSize)
}

func TestTableConfigValidate(t *testing.T) {
	tcs := []struct {
		name string
		cfg  TableConfig
		err  string
	}{
		{name: "no name", cfg: TableConfig{}, err: "table name must be set"},
		{name: "no partition", cfg: TableConfig{Name: "t"}, err: "at least one partition column"},
		{
			name: "duplicate key column",
			cfg:  TableConfig{Name: "t", Layout: predicate.Layout{PartitionColumns: []string{"p"}, ClusteringColumns: []string{"p"}}},
			err:  "used twice",
		},
		{
			name: "undeclared index",
			cfg:  TableConfig{Name: "t", Columns: []string{"p"}, Layout: predicate.Layout{PartitionColumns: []string{"p"}, IndexedColumns: []string{"x"}}},
			err:  "column x is not declared",
		},
		{
			name: "negative fetch size",
			cfg:  TableConfig{Name: "t", Layout: predicate.Layout{PartitionColumns: []string{"p"}}, Options: TableOptions{FetchSize: -1}},
			err:  "fetch_size",
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			require.ErrorContains(t, tc.cfg.Validate(), tc.err)
		})
	}
}

func TestRegistry(t *testing.T) {
	r, err := NewRegistryFromConfig([]TableConfig{
		{Name: "b", Layout: predicate.Layout{PartitionColumns: []string{"p"}}},
		{Name: "a", Layout: predicate.Layout{PartitionColumns: []string{"p"}}},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, r.Names())

	tbl, err := r.Get("a")
	require.NoError(t, err)
	require.Equal(t, []string{"p"}, tbl.Layout.PartitionColumns)

	_, err = r.Get("missing")
	require.True(t, errors.Is(err, ErrTableNotFound))

	_, err = r.Register(TableConfig{Name: "a"})
	require.True(t, errors.Is(err, ErrTableExists))
}
