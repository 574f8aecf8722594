// Package domain defines the persistence models for airports, cached flight
// offers, and rate-limit counters, plus the value objects exchanged between
// the search services and the external flight/AI providers. Persistence
// models are mapped with GORM.
package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Airport is immutable reference data describing one IATA location.
// Airports are bulk-loaded once and rarely updated; searches only ever
// consider rows with IsActive set.
//
// Fields:
//   - IATACode: 3-letter IATA identifier, primary key.
//   - Name / City / Country: display metadata.
//   - Latitude / Longitude: coordinates used for radius filtering.
//   - IsActive: soft on/off switch; inactive airports are invisible to search.
type Airport struct {
	IATACode  string  `json:"iata_code" gorm:"type:char(3);primaryKey"`
	Name      string  `json:"name"      gorm:"type:varchar(255);not null"`
	City      string  `json:"city"      gorm:"type:varchar(128);not null"`
	Country   string  `json:"country"   gorm:"type:varchar(128);not null"`
	Latitude  float64 `json:"latitude"  gorm:"not null"`
	Longitude float64 `json:"longitude" gorm:"not null"`
	IsActive  bool    `json:"is_active" gorm:"not null;default:true;index"`
}

// TableName returns the database table name for Airport.
func (Airport) TableName() string { return "airports" }

// FlightCache stores the best known offers for one (origin, destination,
// departure date) key. There is at most one row per key; a refresh
// overwrites the row in place. A row is valid while FetchedAt is within
// the configured TTL.
//
// The cheapest offer's scalar fields are denormalized onto the row so the
// reverse-search batch query can rank origins without decoding RawOffers.
type FlightCache struct {
	ID            uint           `json:"-"              gorm:"primaryKey;autoIncrement"`
	Origin        string         `json:"origin"         gorm:"type:char(3);not null;uniqueIndex:ux_route_day,priority:1"`
	Destination   string         `json:"destination"    gorm:"type:char(3);not null;uniqueIndex:ux_route_day,priority:2;index:idx_dest_day,priority:1"`
	DepartureDate string         `json:"departure_date" gorm:"type:char(10);not null;uniqueIndex:ux_route_day,priority:3;index:idx_dest_day,priority:2"`
	PriceEUR      float64        `json:"price_eur"      gorm:"not null"`
	Airline       string         `json:"airline"        gorm:"type:varchar(128);not null"`
	DirectFlight  bool           `json:"direct_flight"  gorm:"not null"`
	DurationMin   int            `json:"duration_minutes" gorm:"not null"`
	FetchedAt     time.Time      `json:"fetched_at"     gorm:"not null;index"`
	RawOffers     datatypes.JSON `json:"-"              gorm:"type:json"`
}

// TableName returns the database table name for FlightCache.
func (FlightCache) TableName() string { return "flight_cache" }

// RateCounter backs the provider rate limiter: one row per counter key,
// holding the call count for the current window and the moment the window
// closes. Expired rows are reset in place on the next increment.
type RateCounter struct {
	Key       string    `gorm:"type:varchar(128);primaryKey"`
	Count     int64     `gorm:"not null"`
	ExpiresAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time
}

// TableName returns the database table name for RateCounter.
func (RateCounter) TableName() string { return "rate_counters" }
