// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides read access to the airport directory.
//
// Airports are immutable reference data: the repository only ever reads
// them, and only rows with is_active set are visible to search.
//
// Error semantics:
//   - GetActiveAirport returns gorm.ErrRecordNotFound (aliased here as
//     ErrNotFound) when the airport is missing or inactive.
//   - Other DB errors are propagated unchanged.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/hopcraft/go-trip-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// GetActiveAirport fetches one active airport by IATA code. An inactive or
// missing airport yields ErrNotFound.
func GetActiveAirport(ctx context.Context, db *gorm.DB, iata string) (*domain.Airport, error) {
	var a domain.Airport
	err := db.WithContext(ctx).
		Where("iata_code = ? AND is_active = ?", iata, true).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListActiveAirports returns every active airport, optionally excluding one
// IATA code (pass "" to exclude nothing). The directory is assumed small
// enough to load in full per request.
func ListActiveAirports(ctx context.Context, db *gorm.DB, excludeIATA string) ([]domain.Airport, error) {
	q := db.WithContext(ctx).Where("is_active = ?", true)
	if excludeIATA != "" {
		q = q.Where("iata_code <> ?", excludeIATA)
	}
	var out []domain.Airport
	err := q.Order("iata_code").Find(&out).Error
	return out, err
}
