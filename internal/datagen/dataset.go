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
	"fmt"
	"sort"
	"time"
)

// Song is one song metadata record, one per file in the song dataset.
type Song struct {
	NumSongs        int      `json:"num_songs"`
	ArtistID        string   `json:"artist_id"`
	ArtistLatitude  *float64 `json:"artist_latitude"`
	ArtistLongitude *float64 `json:"artist_longitude"`
	ArtistLocation  string   `json:"artist_location"`
	ArtistName      string   `json:"artist_name"`
	SongID          string   `json:"song_id"`
	Title           string   `json:"title"`
	Duration        float64  `json:"duration"`
	Year            int      `json:"year"`

	// TrackID names the file the record is written to.
	TrackID string `json:"-"`
}

// Event is one user activity record. Fields that are absent for a page
// view are nil and encode as JSON null.
type Event struct {
	Artist        *string  `json:"artist"`
	Auth          string   `json:"auth"`
	FirstName     *string  `json:"firstName"`
	Gender        *string  `json:"gender"`
	ItemInSession int      `json:"itemInSession"`
	LastName      *string  `json:"lastName"`
	Length        *float64 `json:"length"`
	Level         string   `json:"level"`
	Location      *string  `json:"location"`
	Method        string   `json:"method"`
	Page          string   `json:"page"`
	Registration  *float64 `json:"registration"`
	SessionID     int      `json:"sessionId"`
	Song          *string  `json:"song"`
	Status        int      `json:"status"`
	TS            int64    `json:"ts"`
	UserAgent     *string  `json:"userAgent"`
	UserID        string   `json:"userId"`
}

// EventFields are the event JSON keys in staging_events column order.
var EventFields = []string{
	"artist", "auth", "firstName", "gender", "itemInSession", "lastName",
	"length", "level", "location", "method", "page", "registration",
	"sessionId", "song", "status", "ts", "userAgent", "userId",
}

// Options controls the size and shape of a generated dataset.
type Options struct {
	Songs  int
	Users  int
	Events int

	// Seed makes the dataset reproducible. Zero picks a random seed.
	Seed uint64

	// Start is the first day of activity. Events span 30 days from it.
	Start time.Time
}

// DefaultStart is the first day of the generated activity logs.
var DefaultStart = time.Date(2018, 11, 1, 0, 0, 0, 0, time.UTC)

// Dataset is a generated set of songs and events.
type Dataset struct {
	Songs  []Song
	Events []Event
}

// Stats summarizes a dataset.
type Stats struct {
	Songs   int
	Artists int
	Events  int

	// Plays counts NextSong events from a logged-in user.
	Plays int

	// MatchedPlays counts (play, song) pairs with equal artist, title and
	// length, which is the number of fact rows the transform produces.
	MatchedPlays int
}

type user struct {
	id           string
	firstName    string
	lastName     string
	gender       string
	level        string
	location     string
	userAgent    string
	registration float64

	session  int
	item     int
	lastSeen int64
}

const (
	activityDays = 30
	sessionGap   = 30 * time.Minute
)

// Generate builds a dataset. Most plays reference generated songs exactly;
// a small share reference unknown songs and never join, like the real logs.
func Generate(opts Options) (*Dataset, error) {
	if opts.Songs < 1 {
		return nil, fmt.Errorf("songs must be at least 1")
	}
	if opts.Users < 1 {
		return nil, fmt.Errorf("users must be at least 1")
	}
	if opts.Events < 0 {
		return nil, fmt.Errorf("events must be non-negative")
	}
	if opts.Start.IsZero() {
		opts.Start = DefaultStart
	}

	f := NewFaker()
	if opts.Seed != 0 {
		f = NewFakerWithSeed(opts.Seed)
	}

	ds := &Dataset{Songs: generateSongs(f, opts.Songs)}
	users := generateUsers(f, opts.Users, opts.Start)
	ds.Events = generateEvents(f, opts, users, ds.Songs)
	return ds, nil
}

func generateSongs(f *Faker, n int) []Song {
	type artist struct {
		id, name, location string
		lat, lon           *float64
	}

	artists := make([]artist, max(1, n/2))
	used := make(map[string]bool)
	for i := range artists {
		a := artist{id: uniqueID(f, "AR", used), name: f.ArtistName()}
		if f.Chance(0.6) {
			a.location = f.Location()
		}
		if f.Chance(0.5) {
			lat, lon := f.Latitude(), f.Longitude()
			a.lat, a.lon = &lat, &lon
		}
		artists[i] = a
	}

	songs := make([]Song, n)
	for i := range songs {
		a := Choose(f, artists)
		year := 0
		if f.Chance(0.7) {
			year = f.Int(1960, 2018)
		}
		songs[i] = Song{
			NumSongs:        1,
			ArtistID:        a.id,
			ArtistLatitude:  a.lat,
			ArtistLongitude: a.lon,
			ArtistLocation:  a.location,
			ArtistName:      a.name,
			SongID:          uniqueID(f, "SO", used),
			Title:           f.SongTitle(),
			Duration:        round5(f.Float64(60, 600)),
			Year:            year,
			TrackID:         uniqueID(f, "TR", used),
		}
	}
	return songs
}

func uniqueID(f *Faker, prefix string, used map[string]bool) string {
	for {
		id := f.ID(prefix)
		if !used[id] {
			used[id] = true
			return id
		}
	}
}

func generateUsers(f *Faker, n int, start time.Time) []*user {
	users := make([]*user, n)
	for i := range users {
		reg := start.AddDate(0, 0, -f.Int(1, 365)).Add(time.Duration(f.Int(0, 86399)) * time.Second)
		users[i] = &user{
			id:           fmt.Sprintf("%d", i+1),
			firstName:    f.FirstName(),
			lastName:     f.LastName(),
			gender:       Choose(f, []string{"M", "F"}),
			level:        ChooseWeighted(f, []string{"free", "paid"}, []int{3, 1}),
			location:     f.Location(),
			userAgent:    f.UserAgent(),
			registration: float64(reg.UnixMilli()),
		}
	}
	return users
}

var (
	pages       = []string{"NextSong", "Home", "Logout", "Settings", "Help", "About", "Upgrade"}
	pageWeights = []int{80, 8, 4, 3, 2, 2, 1}
)

func generateEvents(f *Faker, opts Options, users []*user, songs []Song) []Event {
	end := opts.Start.AddDate(0, 0, activityDays).Add(-time.Millisecond)

	stamps := make([]int64, opts.Events)
	for i := range stamps {
		stamps[i] = f.DateRange(opts.Start, end).UnixMilli()
	}
	sort.Slice(stamps, func(i, j int) bool { return stamps[i] < stamps[j] })

	var nextSession int
	events := make([]Event, 0, opts.Events)
	for _, ts := range stamps {
		if f.Chance(0.03) {
			events = append(events, anonymousEvent(f, ts))
			continue
		}

		u := Choose(f, users)
		if u.session == 0 || time.Duration(ts-u.lastSeen)*time.Millisecond > sessionGap {
			nextSession++
			u.session = nextSession
			u.item = 0
		}
		u.lastSeen = ts

		page := ChooseWeighted(f, pages, pageWeights)
		if page == "Upgrade" && u.level == "free" {
			u.level = "paid"
		}

		e := Event{
			Auth:          "Logged In",
			FirstName:     ptr(u.firstName),
			Gender:        ptr(u.gender),
			ItemInSession: u.item,
			LastName:      ptr(u.lastName),
			Level:         u.level,
			Location:      ptr(u.location),
			Method:        "GET",
			Page:          page,
			Registration:  ptr(u.registration),
			SessionID:     u.session,
			Status:        200,
			TS:            ts,
			UserAgent:     ptr(u.userAgent),
			UserID:        u.id,
		}
		u.item++

		if page == "NextSong" {
			e.Method = "PUT"
			if f.Chance(0.9) {
				s := Choose(f, songs)
				e.Artist, e.Song, e.Length = ptr(s.ArtistName), ptr(s.Title), ptr(s.Duration)
			} else {
				e.Artist = ptr(f.ArtistName())
				e.Song = ptr(f.SongTitle())
				e.Length = ptr(round5(f.Float64(60, 600)))
			}
		}
		if page == "Logout" {
			e.Method = "PUT"
			e.Status = 307
		}
		events = append(events, e)
	}
	return events
}

// anonymousEvent is a page view from a visitor who is not logged in. The
// user id is an empty string, which loads as NULL.
func anonymousEvent(f *Faker, ts int64) Event {
	return Event{
		Auth:   "Logged Out",
		Level:  "free",
		Method: "GET",
		Page:   Choose(f, []string{"Home", "Login", "About", "Help"}),
		Status: 200,
		TS:     ts,
	}
}

func ptr[T any](v T) *T {
	return &v
}

// Stats summarizes the dataset.
func (d *Dataset) Stats() Stats {
	st := Stats{Songs: len(d.Songs), Events: len(d.Events)}

	type songKey struct {
		artist, title string
		length        float32
	}
	known := make(map[songKey]int, len(d.Songs))
	artists := make(map[string]bool)
	for _, s := range d.Songs {
		known[songKey{s.ArtistName, s.Title, float32(s.Duration)}]++
		artists[s.ArtistID] = true
	}
	st.Artists = len(artists)

	for _, e := range d.Events {
		if e.Page != "NextSong" || e.UserID == "" {
			continue
		}
		st.Plays++
		st.MatchedPlays += known[songKey{*e.Artist, *e.Song, float32(*e.Length)}]
	}
	return st
}
