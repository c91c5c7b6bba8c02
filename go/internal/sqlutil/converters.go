package sqlutil

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Helper functions for converting between Go types and sql.Null* types

// ToNullTime converts a Go time pointer to sql.NullTime
func ToNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{Valid: false}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// FromNullTime converts sql.NullTime to a Go time pointer
func FromNullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// ToNullFloat64 converts a Go float pointer to sql.NullFloat64
func ToNullFloat64(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{Valid: false}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

// FromNullFloat64 converts sql.NullFloat64 to a Go float pointer
func FromNullFloat64(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}

// ToNullUUID converts a Go UUID pointer to uuid.NullUUID
func ToNullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{Valid: false}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

// FromNullUUID converts uuid.NullUUID to a Go UUID pointer
func FromNullUUID(id uuid.NullUUID) *uuid.UUID {
	if !id.Valid {
		return nil
	}
	v := id.UUID
	return &v
}

// UUIDArray wraps ids for a postgres uuid[] parameter.
func UUIDArray(ids []uuid.UUID) any {
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}
	return pq.Array(strs)
}

// ParseUUIDArray converts a scanned uuid[] back to UUIDs.
func ParseUUIDArray(arr pq.StringArray) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, len(arr))
	for i, s := range arr {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("invalid uuid at index %d: %w", i, err)
		}
		ids[i] = id
	}
	return ids, nil
}

// IsUniqueViolation reports whether err is a postgres unique_violation on
// the named constraint. An empty constraint matches any unique violation.
func IsUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	if pqErr.Code != "23505" {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}
