//-------------------------------------------------------------------------
//
// pgEdge Data Warehouse ETL
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package datagen generates synthetic song metadata and user activity logs
// laid out like the raw datasets the warehouse loads.
package datagen

import (
	"math"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
)

// Faker provides fake data generation using gofakeit.
type Faker struct {
	faker *gofakeit.Faker
}

// NewFaker creates a new Faker with a random seed.
func NewFaker() *Faker {
	return &Faker{
		faker: gofakeit.New(uint64(time.Now().UnixNano())),
	}
}

// NewFakerWithSeed creates a new Faker with a specific seed for reproducibility.
func NewFakerWithSeed(seed uint64) *Faker {
	return &Faker{
		faker: gofakeit.New(seed),
	}
}

// FirstName generates a random first name.
func (f *Faker) FirstName() string {
	return f.faker.FirstName()
}

// LastName generates a random last name.
func (f *Faker) LastName() string {
	return f.faker.LastName()
}

// Location generates a "City, ST" location string.
func (f *Faker) Location() string {
	return f.faker.City() + ", " + f.faker.StateAbr()
}

// UserAgent generates a random browser user agent.
func (f *Faker) UserAgent() string {
	return f.faker.UserAgent()
}

// ArtistName generates a random artist name.
func (f *Faker) ArtistName() string {
	if f.Bool() {
		return f.faker.Name()
	}
	return "The " + strings.TrimSuffix(f.faker.Sentence(2), ".")
}

// SongTitle generates a random song title.
func (f *Faker) SongTitle() string {
	return strings.TrimSuffix(f.faker.Sentence(f.Int(1, 4)), ".")
}

// ID generates an 18 character upper-case identifier with the given
// two-letter prefix, shaped like SOMZWCG12A8C13C480.
func (f *Faker) ID(prefix string) string {
	return prefix + strings.ToUpper(f.faker.LetterN(8)) + f.faker.DigitN(8)
}

// Latitude generates a latitude rounded to five decimals.
func (f *Faker) Latitude() float64 {
	return round5(f.faker.Latitude())
}

// Longitude generates a longitude rounded to five decimals.
func (f *Faker) Longitude() float64 {
	return round5(f.faker.Longitude())
}

// DateRange generates a random date within a range.
func (f *Faker) DateRange(start, end time.Time) time.Time {
	return f.faker.DateRange(start, end)
}

// Int generates a random integer between min and max (inclusive).
func (f *Faker) Int(min, max int) int {
	return f.faker.IntRange(min, max)
}

// Float64 generates a random float64 between min and max.
func (f *Faker) Float64(min, max float64) float64 {
	return f.faker.Float64Range(min, max)
}

// Bool generates a random boolean.
func (f *Faker) Bool() bool {
	return f.faker.Bool()
}

// Chance reports true with probability p.
func (f *Faker) Chance(p float64) bool {
	return f.Float64(0, 1) < p
}

// Choose returns a random element from the given slice.
func Choose[T any](f *Faker, items []T) T {
	if len(items) == 0 {
		var zero T
		return zero
	}
	return items[f.Int(0, len(items)-1)]
}

// ChooseWeighted returns a random element based on weights.
func ChooseWeighted[T any](f *Faker, items []T, weights []int) T {
	if len(items) == 0 || len(weights) == 0 {
		var zero T
		return zero
	}

	totalWeight := 0
	for _, w := range weights {
		totalWeight += w
	}

	r := f.Int(1, totalWeight)
	cumulative := 0
	for i, w := range weights {
		cumulative += w
		if r <= cumulative {
			return items[i]
		}
	}

	return items[len(items)-1]
}

func round5(v float64) float64 {
	return math.Round(v*1e5) / 1e5
}
