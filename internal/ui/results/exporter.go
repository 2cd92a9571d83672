package results

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"os"

	"github.com/dbscope/dbscope/internal/adapter"
)

// headerNames extracts the column names used as CSV header and JSON keys.
func headerNames(cols []adapter.ColumnMeta) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

// rowObject maps one row onto its column names. Short rows fill the
// remaining keys with empty strings.
func rowObject(names []string, row []string) map[string]string {
	obj := make(map[string]string, len(names))
	for i, name := range names {
		if i < len(row) {
			obj[name] = row[i]
		} else {
			obj[name] = ""
		}
	}
	return obj
}

// ExportCSV writes buffered columns and rows to a CSV file at path.
func ExportCSV(path string, columns []adapter.ColumnMeta, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(headerNames(columns)); err != nil {
		return err
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// ExportJSON writes buffered columns and rows to path as a JSON array of
// objects keyed by column name.
func ExportJSON(path string, columns []adapter.ColumnMeta, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	names := headerNames(columns)
	objects := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		objects = append(objects, rowObject(names, row))
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(objects)
}

// ExportCSVFromIterator drains an iterator into a CSV file page by page,
// so result sets larger than memory still export. It returns the number
// of rows written.
func ExportCSVFromIterator(ctx context.Context, path string, iter adapter.RowIterator) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(headerNames(iter.Columns())); err != nil {
		return 0, err
	}

	var count int64
	for {
		if err := ctx.Err(); err != nil {
			w.Flush()
			return count, err
		}

		page, err := iter.FetchNext(ctx)
		if err != nil {
			if adapter.SentinelEOF(err) {
				break
			}
			w.Flush()
			return count, err
		}

		for _, row := range page {
			if err := w.Write(row); err != nil {
				w.Flush()
				return count, err
			}
			count++
		}

		// One flush per page keeps buffering bounded.
		w.Flush()
		if err := w.Error(); err != nil {
			return count, err
		}
	}

	w.Flush()
	return count, w.Error()
}

// ExportJSONFromIterator drains an iterator into a JSON array file page by
// page. The array is closed even when the export stops early, so partial
// files stay parseable. It returns the number of rows written.
func ExportJSONFromIterator(ctx context.Context, path string, iter adapter.RowIterator) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	names := headerNames(iter.Columns())

	if _, err := io.WriteString(f, "[\n"); err != nil {
		return 0, err
	}
	closeArray := func() {
		io.WriteString(f, "\n]\n") //nolint:errcheck
	}

	var count int64
	for {
		if err := ctx.Err(); err != nil {
			closeArray()
			return count, err
		}

		page, err := iter.FetchNext(ctx)
		if err != nil {
			if adapter.SentinelEOF(err) {
				break
			}
			closeArray()
			return count, err
		}

		for _, row := range page {
			sep := ",\n  "
			if count == 0 {
				sep = "  "
			}
			if _, err := io.WriteString(f, sep); err != nil {
				return count, err
			}

			data, err := json.MarshalIndent(rowObject(names, row), "  ", "  ")
			if err != nil {
				return count, err
			}
			if _, err := f.Write(data); err != nil {
				return count, err
			}
			count++
		}
	}

	if _, err := io.WriteString(f, "\n]\n"); err != nil {
		return count, err
	}
	return count, nil
}
