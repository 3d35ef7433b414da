package warehouse

import "github.com/pgEdge/pgedge-dwh/internal/pipeline"

// Statement is a named SQL statement writing to one table.
type Statement struct {
	Name  string
	Table string
	SQL   string
}

// Step converts the statement into a pipeline step.
func (s Statement) Step() pipeline.Step {
	return pipeline.Step{Name: s.Name, Table: s.Table, SQL: s.SQL}
}

// Steps converts statements into pipeline steps, preserving order.
func Steps(stmts []Statement) []pipeline.Step {
	steps := make([]pipeline.Step, len(stmts))
	for i, s := range stmts {
		steps[i] = s.Step()
	}
	return steps
}

// Songplays are matched to songs by exact equality on artist name, title
// and duration. Any mismatch between the two sources (rounding, casing)
// drops the play from the fact table.
const insertSongplaysSQL = `
INSERT INTO fact_songplay (start_time, user_id, level,
    song_id, artist_id, session_id, location, user_agent)
    (SELECT se.ts, se.userid, se.level, ss.song_id,
        ss.artist_id, se.sessionid, se.location, se.useragent
     FROM staging_events se JOIN staging_songs ss
         ON se.artist = ss.artist_name
         AND se.song = ss.title
         AND se.length = ss.duration
     WHERE se.page = 'NextSong'
         AND se.ts IS NOT NULL
         AND se.userid IS NOT NULL)`

// Users keep the profile of their latest event in staging. There is no
// existence check against dim_users: inserting a user already present
// violates the primary key. When several rows share the latest timestamp
// with different profile values, all of them are selected.
const insertUsersSQL = `
INSERT INTO dim_users (user_id, first_name, last_name,
    gender, level)
    (SELECT DISTINCT a.userid, a.firstname, a.lastname, a.gender, a.level
     FROM staging_events a
     WHERE a.userid IS NOT NULL
         AND a.ts = (SELECT MAX(b.ts) FROM staging_events b
                     WHERE b.userid = a.userid))`

const insertSongsSQL = `
INSERT INTO dim_songs (song_id, title, artist_id, year,
    duration)
    (SELECT DISTINCT song_id, title, artist_id, year, duration
     FROM staging_songs
     WHERE song_id IS NOT NULL
         AND song_id NOT IN (SELECT DISTINCT song_id FROM dim_songs))`

const insertArtistsSQL = `
INSERT INTO dim_artists (artist_id, name, location,
    latitude, longitude)
    (SELECT DISTINCT artist_id, artist_name, artist_location,
        artist_latitude, artist_longitude
     FROM staging_songs
     WHERE artist_id IS NOT NULL
         AND artist_id NOT IN (SELECT DISTINCT artist_id FROM dim_artists))`

// dow numbers weekdays from 0 (Sunday); week is the ISO week.
const insertTimeSQL = `
INSERT INTO dim_time (start_time, hour, day, week, month,
    year, weekday)
    (SELECT DISTINCT a.ts,
        EXTRACT(hour FROM a.ts), EXTRACT(day FROM a.ts),
        EXTRACT(week FROM a.ts), EXTRACT(month FROM a.ts),
        EXTRACT(year FROM a.ts), EXTRACT(dow FROM a.ts)
     FROM staging_events a
     WHERE a.ts IS NOT NULL
         AND a.ts NOT IN (SELECT DISTINCT b.start_time FROM dim_time b))`

const truncateUsersSQL = `TRUNCATE dim_users`

// InsertStatements returns the five transform statements in execution
// order. The fact table goes first; nothing enforces that its song and
// artist ids resolve against the dimensions.
func InsertStatements() []Statement {
	return []Statement{
		{Name: "insert_songplays", Table: FactSongplay, SQL: insertSongplaysSQL},
		{Name: "insert_users", Table: DimUsers, SQL: insertUsersSQL},
		{Name: "insert_songs", Table: DimSongs, SQL: insertSongsSQL},
		{Name: "insert_artists", Table: DimArtists, SQL: insertArtistsSQL},
		{Name: "insert_time", Table: DimTime, SQL: insertTimeSQL},
	}
}

// TruncateUsersStatement empties dim_users so the users insert becomes a
// full refresh.
func TruncateUsersStatement() Statement {
	return Statement{Name: "truncate_users", Table: DimUsers, SQL: truncateUsersSQL}
}
