// Package dataset loads rows for a table from JSON, YAML or Parquet files.
package dataset

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"

	"github.com/kvplan/kvplan/pkg/rows"
	"github.com/kvplan/kvplan/pkg/value"
)

var ErrUnknownFormat = errors.New("unknown dataset format")

// numbers decode as json.Number so integers keep their precision.
var json = jsoniter.Config{UseNumber: true}.Froze()

// Load reads every row from the file at path. The format is chosen by the
// file extension: .json, .yaml, .yml or .parquet.
func Load(path string) ([]rows.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rs []rows.Row
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		rs, err = ReadJSON(f)
	case ".yaml", ".yml":
		rs, err = ReadYAML(f)
	case ".parquet":
		var fi os.FileInfo
		fi, err = f.Stat()
		if err != nil {
			return nil, err
		}
		rs, err = ReadParquet(f, fi.Size())
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset %s: %w", path, err)
	}
	return rs, nil
}

// ReadJSON reads a JSON array of flat objects.
func ReadJSON(r io.Reader) ([]rows.Row, error) {
	var records []map[string]any
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	return toRows(records)
}

// ReadYAML reads a YAML sequence of flat mappings.
func ReadYAML(r io.Reader) ([]rows.Row, error) {
	var records []map[string]any
	if err := yaml.NewDecoder(r).Decode(&records); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	return toRows(records)
}

// ReadParquet reads every row of a Parquet file. Nested columns are named by
// their dotted path.
func ReadParquet(r io.ReaderAt, size int64) ([]rows.Row, error) {
	pf, err := parquet.OpenFile(r, size)
	if err != nil {
		return nil, err
	}

	var columns []string
	for _, path := range pf.Schema().Columns() {
		columns = append(columns, strings.Join(path, "."))
	}

	reader := parquet.NewReader(pf)
	defer reader.Close()

	out := make([]rows.Row, 0, pf.NumRows())
	buf := make([]parquet.Row, 128)
	for {
		n, err := reader.ReadRows(buf)
		for _, pr := range buf[:n] {
			row, err := fromParquet(pr, columns)
			if err != nil {
				return nil, fmt.Errorf("record %d: %w", len(out), err)
			}
			out = append(out, row)
		}
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

func fromParquet(pr parquet.Row, columns []string) (rows.Row, error) {
	out := make(rows.Row, len(columns))
	for _, v := range pr {
		if v.Column() < 0 || v.Column() >= len(columns) {
			return nil, fmt.Errorf("value for unknown column %d", v.Column())
		}
		if v.IsNull() {
			continue
		}

		var x any
		switch v.Kind() {
		case parquet.Boolean:
			x = v.Boolean()
		case parquet.Int32:
			x = v.Int32()
		case parquet.Int64:
			x = v.Int64()
		case parquet.Float:
			x = v.Float()
		case parquet.Double:
			x = v.Double()
		case parquet.ByteArray, parquet.FixedLenByteArray:
			x = string(v.ByteArray())
		default:
			return nil, fmt.Errorf("column %s: unsupported parquet type %s", columns[v.Column()], v.Kind())
		}

		val, err := value.Of(x)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", columns[v.Column()], err)
		}
		out[columns[v.Column()]] = val
	}
	return out, nil
}

func toRows(records []map[string]any) ([]rows.Row, error) {
	out := make([]rows.Row, 0, len(records))
	for i, rec := range records {
		r, err := rows.FromMap(rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out = append(out, r)
	}
	return out, nil
}
