package predicate

import "slices"

// Layout describes the key structure of a table as reported by the store.
// PartitionColumns and ClusteringColumns are ordered as declared.
type Layout struct {
	PartitionColumns  []string `yaml:"partition_columns"`
	ClusteringColumns []string `yaml:"clustering_columns"`
	IndexedColumns    []string `yaml:"indexed_columns"`
}

func (l Layout) IsPartition(column string) bool {
	return slices.Contains(l.PartitionColumns, column)
}

func (l Layout) IsIndexed(column string) bool {
	return slices.Contains(l.IndexedColumns, column)
}

// ClusteringPosition returns the declared position of column among the
// clustering columns or -1.
func (l Layout) ClusteringPosition(column string) int {
	return slices.Index(l.ClusteringColumns, column)
}

// KeyColumns returns the primary key: partition columns then clustering columns.
func (l Layout) KeyColumns() []string {
	out := make([]string, 0, len(l.PartitionColumns)+len(l.ClusteringColumns))
	out = append(out, l.PartitionColumns...)
	return append(out, l.ClusteringColumns...)
}
