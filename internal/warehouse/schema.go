//-------------------------------------------------------------------------
//
// pgEdge Data Warehouse ETL
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package warehouse

// Table names.
const (
	StagingEvents = "staging_events"
	StagingSongs  = "staging_songs"
	FactSongplay  = "fact_songplay"
	DimUsers      = "dim_users"
	DimSongs      = "dim_songs"
	DimArtists    = "dim_artists"
	DimTime       = "dim_time"
)

// Tables lists every managed table in creation order.
var Tables = []string{
	StagingEvents,
	StagingSongs,
	FactSongplay,
	DimUsers,
	DimSongs,
	DimArtists,
	DimTime,
}

// ColumnType is the warehouse type of a staging column.
type ColumnType int

const (
	Varchar ColumnType = iota
	Int
	BigInt
	Float4
	Timestamp
)

func (t ColumnType) String() string {
	switch t {
	case Varchar:
		return "varchar"
	case Int:
		return "int"
	case BigInt:
		return "bigint"
	case Float4:
		return "float4"
	case Timestamp:
		return "timestamp"
	default:
		return "unknown"
	}
}

// Column describes a staging table column.
type Column struct {
	Name string
	Type ColumnType
}

// StagingEventColumns are the columns of staging_events in table order.
// The events jsonpaths file maps log fields onto them positionally.
var StagingEventColumns = []Column{
	{"artist", Varchar},
	{"auth", Varchar},
	{"firstname", Varchar},
	{"gender", Varchar},
	{"iteminsession", Int},
	{"lastname", Varchar},
	{"length", Float4},
	{"level", Varchar},
	{"location", Varchar},
	{"method", Varchar},
	{"page", Varchar},
	{"registration", BigInt},
	{"sessionid", Int},
	{"song", Varchar},
	{"status", Int},
	{"ts", Timestamp},
	{"useragent", Varchar},
	{"userid", Int},
}

// StagingSongColumns are the columns of staging_songs in table order.
var StagingSongColumns = []Column{
	{"artist_id", Varchar},
	{"artist_latitude", Float4},
	{"artist_location", Varchar},
	{"artist_longitude", Float4},
	{"artist_name", Varchar},
	{"duration", Float4},
	{"num_songs", Int},
	{"song_id", Varchar},
	{"title", Varchar},
	{"year", Int},
}

// ColumnNames returns the names of the given columns.
func ColumnNames(cols []Column) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

// Staging tables are created without IF NOT EXISTS: the drop step is
// expected to have removed them, and a leftover table is an error.
const createStagingEventsSQL = `
CREATE TABLE staging_events (
    artist        varchar,
    auth          varchar,
    firstname     varchar,
    gender        varchar,
    iteminsession int,
    lastname      varchar,
    length        float4,
    level         varchar,
    location      varchar,
    method        varchar,
    page          varchar,
    registration  bigint,
    sessionid     int,
    song          varchar,
    status        int,
    ts            timestamp,
    useragent     varchar,
    userid        int
)`

const createStagingSongsSQL = `
CREATE TABLE staging_songs (
    artist_id        varchar,
    artist_latitude  float4,
    artist_location  varchar,
    artist_longitude float4,
    artist_name      varchar,
    duration         float4,
    num_songs        int,
    song_id          varchar,
    title            varchar,
    year             int
)`

const createDimUsersSQL = `
CREATE TABLE IF NOT EXISTS dim_users (
    user_id    int PRIMARY KEY NOT NULL,
    first_name varchar,
    last_name  varchar,
    gender     varchar,
    level      varchar
)`

const createDimSongsSQL = `
CREATE TABLE IF NOT EXISTS dim_songs (
    song_id   varchar PRIMARY KEY NOT NULL,
    title     varchar,
    artist_id varchar,
    year      int,
    duration  float
)`

const createDimArtistsSQL = `
CREATE TABLE IF NOT EXISTS dim_artists (
    artist_id varchar PRIMARY KEY NOT NULL,
    name      varchar,
    location  varchar,
    latitude  float,
    longitude float
)`

const createDimTimeSQL = `
CREATE TABLE IF NOT EXISTS dim_time (
    start_time timestamp PRIMARY KEY NOT NULL,
    hour       int,
    day        int,
    week       int,
    month      int,
    year       int,
    weekday    int
)`

// DropStatements returns one DROP TABLE IF EXISTS per managed table. There
// are no foreign keys, so the order carries no meaning.
func DropStatements() []Statement {
	stmts := make([]Statement, 0, len(Tables))
	for _, table := range Tables {
		stmts = append(stmts, Statement{
			Name:  "drop_" + table,
			Table: table,
			SQL:   "DROP TABLE IF EXISTS " + table,
		})
	}
	return stmts
}

// CreateStatements returns the seven CREATE TABLE statements in creation
// order, using the dialect's fact table definition.
func CreateStatements(d Dialect) []Statement {
	return []Statement{
		{Name: "create_" + StagingEvents, Table: StagingEvents, SQL: createStagingEventsSQL},
		{Name: "create_" + StagingSongs, Table: StagingSongs, SQL: createStagingSongsSQL},
		{Name: "create_" + FactSongplay, Table: FactSongplay, SQL: d.SongplayTableSQL()},
		{Name: "create_" + DimUsers, Table: DimUsers, SQL: createDimUsersSQL},
		{Name: "create_" + DimSongs, Table: DimSongs, SQL: createDimSongsSQL},
		{Name: "create_" + DimArtists, Table: DimArtists, SQL: createDimArtistsSQL},
		{Name: "create_" + DimTime, Table: DimTime, SQL: createDimTimeSQL},
	}
}
