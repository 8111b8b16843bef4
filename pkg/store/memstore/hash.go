package memstore

import (
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/kvplan/kvplan/pkg/value"
)

// separatorByte cannot occur in valid UTF-8 sequences
var separatorByte = []byte{255}

// partitionToken hashes the partition key values. Partitions are scanned in
// token order, the way a hash partitioned store returns an unrestricted scan.
// Values that compare equal hash equally.
func partitionToken(key []value.Value) uint64 {
	h := xxhash.New()
	for _, v := range key {
		if v.Type == value.TypeFloat && v.F == math.Trunc(v.F) && v.F >= -(1<<63) && v.F < 1<<63 {
			v = value.NewInt(int64(v.F))
		}
		_, _ = h.WriteString(v.Type.String())
		_, _ = h.Write(separatorByte)
		_, _ = h.WriteString(v.String())
		_, _ = h.Write(separatorByte)
	}
	return h.Sum64()
}
