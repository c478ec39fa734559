package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/kevin07696/valueio-gateway/internal/domain"
)

// parseAmount converts a NUMERIC selected as text
func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return d, nil
}

// timePtr converts a nullable timestamp
func timePtr(ts pgtype.Timestamptz) *time.Time {
	if !ts.Valid {
		return nil
	}
	t := ts.Time.UTC()
	return &t
}

// dbError wraps a driver error, mapping a missing row to NOT_FOUND
func dbError(op, kind, id string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.NewNotFoundError(kind, id)
	}
	return domain.WrapError(domain.ErrorCodeDatabaseError, op, err)
}
