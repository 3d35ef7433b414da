//-------------------------------------------------------------------------
//
// pgEdge Data Warehouse ETL
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package datagen

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"

	"github.com/pgEdge/pgedge-dwh/internal/logging"
)

// Dataset layout below the output directory.
const (
	SongDataDir  = "song_data"
	LogDataDir   = "log_data"
	JSONPathFile = "log_json_path.json"
)

// Paths are the locations of a written dataset, ready to be used as the
// storage settings of the postgres dialect.
type Paths struct {
	LogData     string
	LogJSONPath string
	SongData    string
}

// WriteResult describes a written dataset.
type WriteResult struct {
	Paths     Paths
	SongFiles int
	LogFiles  int
	Bytes     int64
}

// Write writes the dataset below dir: one file per song under
// song_data/<A>/<B>/<C>/, one newline-delimited file per day under
// log_data/<year>/<month>/, and the events jsonpaths file.
func (d *Dataset) Write(dir string) (*WriteResult, error) {
	res := &WriteResult{Paths: Paths{
		LogData:     filepath.Join(dir, LogDataDir),
		LogJSONPath: filepath.Join(dir, JSONPathFile),
		SongData:    filepath.Join(dir, SongDataDir),
	}}

	progress := NewProgressReporter(SongDataDir, int64(len(d.Songs)), 500)
	for _, s := range d.Songs {
		n, err := writeSong(res.Paths.SongData, s)
		if err != nil {
			return nil, err
		}
		res.SongFiles++
		res.Bytes += n
		progress.Update(1)
	}
	progress.Done()

	days := groupByDay(d.Events)
	progress = NewProgressReporter(LogDataDir, int64(len(d.Events)), 5000)
	for _, day := range days {
		n, err := writeDay(res.Paths.LogData, day.date, day.events)
		if err != nil {
			return nil, err
		}
		res.LogFiles++
		res.Bytes += n
		progress.Update(int64(len(day.events)))
	}
	progress.Done()

	n, err := writeJSONPaths(res.Paths.LogJSONPath)
	if err != nil {
		return nil, err
	}
	res.Bytes += n

	return res, nil
}

func writeSong(root string, s Song) (int64, error) {
	if len(s.TrackID) < 5 {
		return 0, fmt.Errorf("song %s has an invalid track id %q", s.SongID, s.TrackID)
	}
	dir := filepath.Join(root, s.TrackID[2:3], s.TrackID[3:4], s.TrackID[4:5])
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", dir, err)
	}

	data, err := json.Marshal(s)
	if err != nil {
		return 0, fmt.Errorf("failed to encode song %s: %w", s.SongID, err)
	}
	path := filepath.Join(dir, s.TrackID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return int64(len(data)), nil
}

type dayEvents struct {
	date   time.Time
	events []Event
}

// groupByDay splits time-ordered events into UTC days.
func groupByDay(events []Event) []dayEvents {
	var days []dayEvents
	for _, e := range events {
		t := time.UnixMilli(e.TS).UTC()
		date := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		if len(days) == 0 || !days[len(days)-1].date.Equal(date) {
			days = append(days, dayEvents{date: date})
		}
		last := &days[len(days)-1]
		last.events = append(last.events, e)
	}
	return days
}

func writeDay(root string, date time.Time, events []Event) (int64, error) {
	dir := filepath.Join(root, date.Format("2006"), date.Format("01"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", dir, err)
	}

	path := filepath.Join(dir, date.Format("2006-01-02")+"-events.json")
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	cw := &countingWriter{w: bufio.NewWriter(f)}
	enc := json.NewEncoder(cw)
	for _, e := range events {
		if err := enc.Encode(e); err != nil {
			return 0, fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	if err := cw.w.Flush(); err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return cw.n, f.Close()
}

func writeJSONPaths(path string) (int64, error) {
	exprs := make([]string, len(EventFields))
	for i, field := range EventFields {
		exprs[i] = fmt.Sprintf("$['%s']", field)
	}

	data, err := json.MarshalIndent(map[string][]string{"jsonpaths": exprs}, "", "    ")
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return int64(len(data)), nil
}

type countingWriter struct {
	w *bufio.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// ProgressReporter tracks and reports dataset writing progress.
type ProgressReporter struct {
	name             string
	total            int64
	current          int64
	progressInterval int64
}

// NewProgressReporter creates a new progress reporter.
func NewProgressReporter(name string, total, interval int64) *ProgressReporter {
	return &ProgressReporter{
		name:             name,
		total:            total,
		progressInterval: interval,
	}
}

// Update records written records and logs when an interval is crossed.
func (p *ProgressReporter) Update(n int64) {
	old := p.current
	p.current += n

	if p.progressInterval > 0 && p.current/p.progressInterval > old/p.progressInterval {
		pct := float64(p.current) / float64(p.total) * 100
		logging.Info().
			Str("dataset", p.name).
			Int64("records", p.current).
			Int64("total", p.total).
			Float64("percent", pct).
			Msg("Writing data")
	}
}

// Done logs completion.
func (p *ProgressReporter) Done() {
	logging.Info().
		Str("dataset", p.name).
		Int64("records", p.current).
		Msg("Dataset complete")
}

// FormatSize formats a byte count as a human-readable string.
func FormatSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
