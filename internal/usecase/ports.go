package usecase

import (
	"context"

	"github.com/plotwise/seedtrace"
	"github.com/plotwise/seedtrace/internal/infra/repository"
)

// RecordRepository defines storage operations for discard records.
type RecordRepository interface {
	QueryByScope(ctx context.Context, scope seedtrace.Scope, field string) ([]seedtrace.Record, error)
	FindByBarcode(ctx context.Context, scope seedtrace.Scope, code string) (*seedtrace.Record, error)
	UpdateByID(ctx context.Context, id int64, patch repository.DiscardPatch) error
	Create(ctx context.Context, scope seedtrace.Scope, record seedtrace.Record) (seedtrace.Record, error)
}

// OptionRepository defines lookup for the farm/section/field tree.
type OptionRepository interface {
	ListBySite(ctx context.Context, site string) ([]seedtrace.Option, error)
}

// ScopeRepository defines persistence for per-operator scope defaults.
type ScopeRepository interface {
	Get(ctx context.Context, actor string) (seedtrace.Scope, bool, error)
	Set(ctx context.Context, actor string, scope seedtrace.Scope) error
}

// EventPublisher broadcasts discard-state changes to live tables.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, event seedtrace.Event) error
}
