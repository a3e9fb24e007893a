package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aevon-lab/hookline/internal/normalization"
)

// MappingAdapter standardizes partner event names from the event_mappings table.
// It shares the connection pool of the main Adapter.
type MappingAdapter struct {
	db *sql.DB
}

// NewMappingAdapter creates a mapping adapter on db.
func NewMappingAdapter(db *sql.DB) *MappingAdapter {
	return &MappingAdapter{db: db}
}

// Standardize looks up the canonical name for (sourceSystem, originalEvent).
// A project-specific mapping wins over a global one. No mapping is a
// successful lookup that returns the original name unmapped.
func (a *MappingAdapter) Standardize(ctx context.Context, sourceSystem, originalEvent, projectID string) (*normalization.Result, error) {
	var standardized string
	err := a.db.QueryRowContext(ctx, queryLookupMapping, sourceSystem, originalEvent, projectID).Scan(&standardized)
	if errors.Is(err, sql.ErrNoRows) {
		return &normalization.Result{
			StandardizedEvent: originalEvent,
			WasMapped:         false,
			Success:           true,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up event mapping: %w", err)
	}

	return &normalization.Result{
		StandardizedEvent: standardized,
		WasMapped:         true,
		Success:           true,
	}, nil
}

var _ normalization.Standardizer = (*MappingAdapter)(nil)
