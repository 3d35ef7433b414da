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
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/pgEdge/pgedge-dwh/internal/warehouse"
)

func testOptions() Options {
	return Options{Songs: 20, Users: 5, Events: 300, Seed: 42}
}

func TestGenerateDeterministic(t *testing.T) {
	a, err := Generate(testOptions())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	b, err := Generate(testOptions())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("same seed should produce the same dataset")
	}
}

func TestGenerateShape(t *testing.T) {
	ds, err := Generate(testOptions())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(ds.Songs) != 20 {
		t.Errorf("got %d songs, want 20", len(ds.Songs))
	}
	if len(ds.Events) != 300 {
		t.Errorf("got %d events, want 300", len(ds.Events))
	}

	ids := make(map[string]bool)
	for _, s := range ds.Songs {
		if ids[s.SongID] {
			t.Errorf("duplicate song id %s", s.SongID)
		}
		ids[s.SongID] = true
		if !strings.HasPrefix(s.ArtistID, "AR") || !strings.HasPrefix(s.TrackID, "TR") {
			t.Errorf("unexpected ids in %+v", s)
		}
	}

	start := DefaultStart.UnixMilli()
	end := DefaultStart.AddDate(0, 0, activityDays).UnixMilli()
	for i, e := range ds.Events {
		if e.TS < start || e.TS >= end {
			t.Errorf("event %d ts %d outside the activity window", i, e.TS)
		}
		if i > 0 && e.TS < ds.Events[i-1].TS {
			t.Errorf("events not ordered by ts at %d", i)
		}
		if e.Page == "NextSong" && (e.Artist == nil || e.Song == nil || e.Length == nil) {
			t.Errorf("play %d is missing artist, song or length", i)
		}
		if e.Page != "NextSong" && e.Song != nil {
			t.Errorf("non-play event %d carries a song", i)
		}
	}
}

func TestGenerateStats(t *testing.T) {
	ds, err := Generate(testOptions())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	st := ds.Stats()
	if st.Plays == 0 {
		t.Fatal("expected some plays")
	}
	if st.MatchedPlays == 0 {
		t.Error("expected most plays to reference generated songs")
	}
	if st.Artists < 1 || st.Artists > 10 {
		t.Errorf("got %d artists, want between 1 and 10", st.Artists)
	}
}

func TestGenerateValidation(t *testing.T) {
	for _, opts := range []Options{
		{Songs: 0, Users: 1},
		{Songs: 1, Users: 0},
		{Songs: 1, Users: 1, Events: -1},
	} {
		if _, err := Generate(opts); err == nil {
			t.Errorf("expected error for %+v", opts)
		}
	}
}

func TestWriteLayout(t *testing.T) {
	ds, err := Generate(testOptions())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	dir := t.TempDir()
	res, err := ds.Write(dir)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if res.SongFiles != 20 {
		t.Errorf("wrote %d song files, want 20", res.SongFiles)
	}
	if res.Bytes == 0 {
		t.Error("expected a non-zero byte count")
	}

	s := ds.Songs[0]
	songPath := filepath.Join(dir, SongDataDir, s.TrackID[2:3], s.TrackID[3:4], s.TrackID[4:5], s.TrackID+".json")
	data, err := os.ReadFile(songPath)
	if err != nil {
		t.Fatalf("song file missing: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("song file is not JSON: %v", err)
	}
	if got["song_id"] != s.SongID {
		t.Errorf("song_id = %v, want %s", got["song_id"], s.SongID)
	}
	if _, ok := got["TrackID"]; ok {
		t.Error("track id must not be written into the record")
	}

	logs, err := filepath.Glob(filepath.Join(dir, LogDataDir, "2018", "11", "2018-11-*-events.json"))
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != res.LogFiles || len(logs) == 0 {
		t.Fatalf("found %d log files, result says %d", len(logs), res.LogFiles)
	}

	var lines int
	sort.Strings(logs)
	for _, path := range logs {
		day := strings.TrimSuffix(filepath.Base(path), "-events.json")
		f, err := os.Open(path)
		if err != nil {
			t.Fatal(err)
		}
		sc := bufio.NewScanner(f)
		sc.Buffer(make([]byte, 64*1024), 1024*1024)
		for sc.Scan() {
			var e Event
			if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
				t.Fatalf("%s: invalid event line: %v", path, err)
			}
			if got := time.UnixMilli(e.TS).UTC().Format("2006-01-02"); got != day {
				t.Errorf("%s holds an event from %s", path, got)
			}
			lines++
		}
		f.Close()
	}
	if lines != len(ds.Events) {
		t.Errorf("log files hold %d events, want %d", lines, len(ds.Events))
	}
}

func TestJSONPathsMatchStagingColumns(t *testing.T) {
	dir := t.TempDir()
	if _, err := writeJSONPaths(filepath.Join(dir, JSONPathFile)); err != nil {
		t.Fatalf("writeJSONPaths failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, JSONPathFile))
	if err != nil {
		t.Fatal(err)
	}
	var doc struct {
		JSONPaths []string `json:"jsonpaths"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}

	cols := warehouse.StagingEventColumns
	if len(doc.JSONPaths) != len(cols) {
		t.Fatalf("got %d jsonpaths, want %d", len(doc.JSONPaths), len(cols))
	}
	for i, col := range cols {
		want := "$['" + EventFields[i] + "']"
		if doc.JSONPaths[i] != want {
			t.Errorf("jsonpath %d = %s, want %s", i, doc.JSONPaths[i], want)
		}
		if strings.ToLower(EventFields[i]) != col.Name {
			t.Errorf("field %s does not map to column %s", EventFields[i], col.Name)
		}
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{512, "512 B"},
		{2048, "2.00 KB"},
		{5 * 1024 * 1024, "5.00 MB"},
		{3 * 1024 * 1024 * 1024, "3.00 GB"},
	}
	for _, tt := range tests {
		if got := FormatSize(tt.bytes); got != tt.want {
			t.Errorf("FormatSize(%d) = %q, want %q", tt.bytes, got, tt.want)
		}
	}
}
