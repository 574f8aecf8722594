// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the flight-offer cache repository.
//
// The flight_cache table is keyed by (origin, destination, departure_date)
// with a unique index; writes are upserts that overwrite the previous row
// for the same key. A row is a valid hit only while fetched_at is not older
// than the TTL cutoff computed by the caller.
//
// Functions:
//
//   - GetCachedOffers(ctx, db, origin, dest, day, cutoff) -> offers, fetchedAt, error
//     Exact-key lookup used by the per-leg itinerary flow. A missing or
//     stale row returns ErrNotFound.
//
//   - ListValidCacheForDestination(ctx, db, dest, days, cutoff) -> rows, error
//     Batch lookup across all origins for one destination and a set of
//     departure days, used by reverse search.
//
//   - UpsertCache(ctx, db, origin, dest, day, offers, now) -> error
//     No-op on an empty offer list; otherwise denormalizes the cheapest
//     offer and overwrites the row for the key.
package repo

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hopcraft/go-trip-backend/internal/domain"
)

// GetCachedOffers returns the cached offers and fetch time for one exact
// (origin, destination, departure day) key. Days use the "2006-01-02"
// format. Rows fetched before cutoff are treated as absent (ErrNotFound).
func GetCachedOffers(ctx context.Context, db *gorm.DB, origin, dest, day string, cutoff time.Time) ([]domain.FlightOffer, time.Time, error) {
	var row domain.FlightCache
	err := db.WithContext(ctx).
		Where("origin = ? AND destination = ? AND departure_date = ? AND fetched_at >= ?",
			origin, dest, day, cutoff).
		First(&row).Error
	if err != nil {
		return nil, time.Time{}, err
	}

	var offers []domain.FlightOffer
	if len(row.RawOffers) > 0 {
		if err := json.Unmarshal(row.RawOffers, &offers); err != nil {
			return nil, time.Time{}, err
		}
	}
	return offers, row.FetchedAt, nil
}

// ListValidCacheForDestination returns every non-stale cache row pointing at
// dest for any of the given departure days, across all origins.
func ListValidCacheForDestination(ctx context.Context, db *gorm.DB, dest string, days []string, cutoff time.Time) ([]domain.FlightCache, error) {
	var rows []domain.FlightCache
	err := db.WithContext(ctx).
		Where("destination = ? AND departure_date IN ? AND fetched_at >= ?", dest, days, cutoff).
		Find(&rows).Error
	return rows, err
}

// UpsertCache stores offers for one key, overwriting any prior row. The
// cheapest offer's scalar fields are denormalized onto the row; the full
// list is kept as JSON. An empty offer list is a no-op.
func UpsertCache(ctx context.Context, db *gorm.DB, origin, dest, day string, offers []domain.FlightOffer, now time.Time) error {
	if len(offers) == 0 {
		return nil
	}

	cheapest := offers[0]
	for _, o := range offers[1:] {
		if o.PriceEUR < cheapest.PriceEUR {
			cheapest = o
		}
	}

	raw, err := json.Marshal(offers)
	if err != nil {
		return err
	}

	row := domain.FlightCache{
		Origin:        origin,
		Destination:   dest,
		DepartureDate: day,
		PriceEUR:      cheapest.PriceEUR,
		Airline:       cheapest.Airline,
		DirectFlight:  cheapest.Direct,
		DurationMin:   cheapest.DurationMin,
		FetchedAt:     now,
		RawOffers:     raw,
	}

	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "origin"}, {Name: "destination"}, {Name: "departure_date"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"price_eur", "airline", "direct_flight", "duration_min", "fetched_at", "raw_offers",
			}),
		}).
		Create(&row).Error
}
