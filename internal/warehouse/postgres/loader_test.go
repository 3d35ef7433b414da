package postgres

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgEdge/pgedge-dwh/internal/config"
	"github.com/pgEdge/pgedge-dwh/internal/warehouse"
)

// copyRecorder captures the rows passed to CopyFrom.
type copyRecorder struct {
	table   pgx.Identifier
	columns []string
	rows    [][]any
}

func (c *copyRecorder) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (c *copyRecorder) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, nil
}

func (c *copyRecorder) QueryRow(context.Context, string, ...any) pgx.Row {
	return nil
}

func (c *copyRecorder) CopyFrom(_ context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error) {
	c.table = table
	c.columns = columns
	for src.Next() {
		values, err := src.Values()
		if err != nil {
			return 0, err
		}
		c.rows = append(c.rows, values)
	}
	return int64(len(c.rows)), src.Err()
}

const eventsJSONPaths = `{
    "jsonpaths": [
        "$['artist']", "$['auth']", "$['firstName']", "$['gender']",
        "$['itemInSession']", "$['lastName']", "$['length']", "$['level']",
        "$['location']", "$['method']", "$['page']", "$['registration']",
        "$['sessionId']", "$['song']", "$['status']", "$['ts']",
        "$['userAgent']", "$['userId']"
    ]
}`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadEvents(t *testing.T) {
	dir := t.TempDir()
	pathsFile := filepath.Join(dir, "log_json_path.json")
	writeFile(t, pathsFile, eventsJSONPaths)

	logDir := filepath.Join(dir, "log_data")
	writeFile(t, filepath.Join(logDir, "2018", "11", "2018-11-01-events.json"),
		`{"artist":"Sydney Youngblood","auth":"Logged In","firstName":"Jacob","gender":"M","itemInSession":53,"lastName":"Klein","length":238.07955,"level":"paid","location":"Tampa","method":"PUT","page":"NextSong","registration":1540558108796.0,"sessionId":954,"song":"Ain't No Sunshine","status":200,"ts":1543449657796,"userAgent":"Mozilla","userId":"73"}
{"artist":null,"auth":"Logged In","firstName":"Jacob","gender":"M","itemInSession":54,"lastName":"Klein","length":null,"level":"paid","location":"Tampa","method":"GET","page":"Home","registration":1540558108796.0,"sessionId":954,"song":null,"status":200,"ts":1543449690796,"userAgent":"Mozilla","userId":""}
`)
	writeFile(t, filepath.Join(logDir, "README.txt"), "ignored")

	db := &copyRecorder{}
	n, err := loadEvents(context.Background(), db, logDir, "file://"+pathsFile)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, pgx.Identifier{warehouse.StagingEvents}, db.table)
	assert.Equal(t, warehouse.ColumnNames(warehouse.StagingEventColumns), db.columns)

	first := db.rows[0]
	assert.Equal(t, "Sydney Youngblood", first[0])
	assert.Equal(t, int32(53), first[4])
	assert.Equal(t, float32(238.07955), first[6])
	assert.Equal(t, int64(1540558108796), first[11])
	assert.Equal(t, time.UnixMilli(1543449657796).UTC(), first[15])
	assert.Equal(t, int32(73), first[17], "numeric strings load into int columns")

	second := db.rows[1]
	assert.Nil(t, second[0])
	assert.Nil(t, second[6])
	assert.Nil(t, second[17], "empty strings load as NULL")
}

func TestLoadEventsPathCountMismatch(t *testing.T) {
	dir := t.TempDir()
	pathsFile := filepath.Join(dir, "paths.json")
	writeFile(t, pathsFile, `{"jsonpaths": ["$['artist']"]}`)
	writeFile(t, filepath.Join(dir, "log", "a.json"), `{"artist":"x"}`)

	_, err := loadEvents(context.Background(), &copyRecorder{}, filepath.Join(dir, "log"), pathsFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 expressions")
}

func TestLoadSongsIgnoresKeyCase(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "A", "A", "A", "TRAAAAW128F429D538.json"),
		`{"num_songs": 1, "ARTIST_ID": "ARD7TVE1187B99BFB1", "artist_latitude": null, "artist_longitude": null, "artist_location": "California - LA", "Artist_Name": "Casual", "song_id": "SOMZWCG12A8C13C480", "title": "I Didn't Mean To", "duration": 218.93179, "year": 0}`)

	db := &copyRecorder{}
	n, err := loadSongs(context.Background(), db, dir)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	row := db.rows[0]
	assert.Equal(t, "ARD7TVE1187B99BFB1", row[0])
	assert.Nil(t, row[1])
	assert.Equal(t, "Casual", row[4])
	assert.Equal(t, float32(218.93179), row[5])
	assert.Equal(t, int32(0), row[9])
}

func TestLoadRejectsBadRecord(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.json"), `{"song_id": "S1", "year": "nineteen"}`)

	db := &copyRecorder{}
	_, err := loadSongs(context.Background(), db, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "column year")
	assert.Empty(t, db.rows, "nothing is copied when a record fails")
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.json"), "{\"song_id\": \"S1\"}\n{broken")

	_, err := loadSongs(context.Background(), &copyRecorder{}, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record 2")
}

func TestListJSONFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b", "2.json"), "{}")
	writeFile(t, filepath.Join(dir, "a", "1.json"), "{}")
	writeFile(t, filepath.Join(dir, "a", "notes.md"), "")

	files, err := listJSONFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a", "1.json"),
		filepath.Join(dir, "b", "2.json"),
	}, files)

	single, err := listJSONFiles(files[0])
	require.NoError(t, err)
	assert.Equal(t, files[:1], single)

	_, err = listJSONFiles(filepath.Join(dir, "missing"))
	assert.Error(t, err)

	empty := t.TempDir()
	_, err = listJSONFiles(empty)
	assert.Error(t, err)
}

func TestLocalPathRejectsS3(t *testing.T) {
	_, err := localPath("s3://udacity-dend/song_data")
	require.Error(t, err)

	p, err := localPath("file:///data/song_data")
	require.NoError(t, err)
	assert.Equal(t, "/data/song_data", p)
}

func TestStagingSteps(t *testing.T) {
	steps, err := New().StagingSteps(context.Background(), config.StorageConfig{
		LogData:     "/data/log_data",
		LogJSONPath: "/data/log_json_path.json",
		SongData:    "/data/song_data",
	}, config.IAMRoleConfig{})
	require.NoError(t, err)
	require.Len(t, steps, 2)

	assert.Equal(t, warehouse.StagingEvents, steps[0].Table)
	assert.Equal(t, warehouse.StagingSongs, steps[1].Table)
	for _, s := range steps {
		assert.NotNil(t, s.Run)
		assert.True(t, strings.HasPrefix(s.LogSQL, "COPY "+s.Table))
	}
}

func TestRegistered(t *testing.T) {
	d, err := warehouse.Get("postgres")
	require.NoError(t, err)
	assert.False(t, d.SimpleProtocol())
	assert.Contains(t, d.SongplayTableSQL(), "GENERATED BY DEFAULT AS IDENTITY")
}
