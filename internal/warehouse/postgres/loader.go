package postgres

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"

	"github.com/pgEdge/pgedge-dwh/internal/logging"
	"github.com/pgEdge/pgedge-dwh/internal/pipeline"
	"github.com/pgEdge/pgedge-dwh/internal/warehouse"
)

// loadEvents reads every log file under dataLoc, maps fields to columns
// with the jsonpaths file and copies all rows into staging_events in one
// operation. Any unreadable file or record fails the whole load before a
// row is written.
func loadEvents(ctx context.Context, db pipeline.DB, dataLoc, pathsLoc string) (int64, error) {
	paths, err := readJSONPaths(pathsLoc)
	if err != nil {
		return 0, err
	}
	cols := warehouse.StagingEventColumns
	if len(paths) != len(cols) {
		return 0, fmt.Errorf("jsonpaths file has %d expressions, %s has %d columns",
			len(paths), warehouse.StagingEvents, len(cols))
	}

	rows, err := readRows(dataLoc, func(obj map[string]any) ([]any, error) {
		row := make([]any, len(cols))
		for i, col := range cols {
			v, err := coerce(paths[i].lookup(obj), col.Type)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", col.Name, err)
			}
			row[i] = v
		}
		return row, nil
	})
	if err != nil {
		return 0, err
	}
	return copyRows(ctx, db, warehouse.StagingEvents, cols, rows)
}

// loadSongs reads every song file under dataLoc and matches JSON keys to
// column names case-insensitively.
func loadSongs(ctx context.Context, db pipeline.DB, dataLoc string) (int64, error) {
	cols := warehouse.StagingSongColumns

	rows, err := readRows(dataLoc, func(obj map[string]any) ([]any, error) {
		fields := make(map[string]any, len(obj))
		for k, v := range obj {
			lk := strings.ToLower(k)
			if _, dup := fields[lk]; !dup {
				fields[lk] = v
			}
		}
		row := make([]any, len(cols))
		for i, col := range cols {
			v, err := coerce(fields[col.Name], col.Type)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", col.Name, err)
			}
			row[i] = v
		}
		return row, nil
	})
	if err != nil {
		return 0, err
	}
	return copyRows(ctx, db, warehouse.StagingSongs, cols, rows)
}

func copyRows(ctx context.Context, db pipeline.DB, table string, cols []warehouse.Column, rows [][]any) (int64, error) {
	n, err := db.CopyFrom(ctx, pgx.Identifier{table}, warehouse.ColumnNames(cols), pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("failed to copy into %s: %w", table, err)
	}
	return n, nil
}

// readRows converts every JSON object in every file under location.
func readRows(location string, toRow func(map[string]any) ([]any, error)) ([][]any, error) {
	files, err := listJSONFiles(location)
	if err != nil {
		return nil, err
	}

	var rows [][]any
	for _, file := range files {
		err := readObjects(file, func(record int, obj map[string]any) error {
			row, err := toRow(obj)
			if err != nil {
				return fmt.Errorf("%s: record %d: %w", file, record, err)
			}
			rows = append(rows, row)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	logging.Debug().
		Str("location", location).
		Int("files", len(files)).
		Int("rows", len(rows)).
		Msg("Read staging records")

	return rows, nil
}

// readObjects decodes a file holding one JSON object or a stream of
// newline-delimited objects.
func readObjects(path string, fn func(record int, obj map[string]any) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := json.NewDecoder(bufio.NewReader(f))
	dec.UseNumber()

	for record := 1; ; record++ {
		var obj map[string]any
		if err := dec.Decode(&obj); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("%s: record %d: %w", path, record, err)
		}
		if obj == nil {
			continue
		}
		if err := fn(record, obj); err != nil {
			return err
		}
	}
}

// listJSONFiles returns the .json files at location: the file itself, or
// every .json file below a directory in lexical order.
func listJSONFiles(location string) ([]string, error) {
	root, err := localPath(location)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".json") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .json files found under %s", location)
	}
	sort.Strings(files)
	return files, nil
}

// localPath strips a file:// scheme and rejects remote locations.
func localPath(location string) (string, error) {
	if strings.HasPrefix(location, "file://") {
		return strings.TrimPrefix(location, "file://"), nil
	}
	if strings.Contains(location, "://") {
		return "", fmt.Errorf("the postgres dialect reads local files only, got %s", location)
	}
	return location, nil
}
