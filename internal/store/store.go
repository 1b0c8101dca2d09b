// Package store persists the run ledger: one row per competitor per
// research or update operation, used for the runs command and the serve
// endpoint.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/compintel/internal/model"
)

// RunFilter specifies criteria for listing ledger entries.
type RunFilter struct {
	Status     model.RunStatus    `json:"status,omitempty"`
	Operation  model.RunOperation `json:"operation,omitempty"`
	Competitor string             `json:"competitor,omitempty"`
	Limit      int                `json:"limit,omitempty"`
	Offset     int                `json:"offset,omitempty"`
}

// Store defines the ledger persistence interface.
type Store interface {
	RecordRun(ctx context.Context, run model.Run) error
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates a Store for the configured driver and runs migrations.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	var (
		s   Store
		err error
	)
	switch driver {
	case "sqlite", "":
		s, err = NewSQLite(dsn)
	case "postgres":
		s, err = NewPostgres(ctx, dsn)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}
