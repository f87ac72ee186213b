package usecase

import (
	"context"

	"github.com/plotwise/seedtrace"
	"github.com/plotwise/seedtrace/internal/domain"
)

// OptionsUsecase serves the farm/section/field tree for a site.
type OptionsUsecase struct {
	repo OptionRepository
}

func NewOptionsUsecase(repo OptionRepository) *OptionsUsecase {
	return &OptionsUsecase{repo: repo}
}

func (uc *OptionsUsecase) List(ctx context.Context, site string) ([]seedtrace.Option, error) {
	if site == "" {
		return nil, domain.ValidationError{Missing: []string{"site"}}
	}
	options, err := uc.repo.ListBySite(ctx, site)
	if err != nil {
		return nil, domain.DependencyUnavailableError{Dependency: "option source"}
	}
	return options, nil
}

// RecordsUsecase serves the scoped record set that tables are loaded from.
type RecordsUsecase struct {
	repo RecordRepository
}

func NewRecordsUsecase(repo RecordRepository) *RecordsUsecase {
	return &RecordsUsecase{repo: repo}
}

// Fetch returns every record in scope, optionally narrowed to one field.
// An empty result is valid and clears the caller's table.
func (uc *RecordsUsecase) Fetch(ctx context.Context, scope seedtrace.Scope, field string) ([]seedtrace.Record, error) {
	if missing := scope.Missing(); len(missing) > 0 {
		return nil, domain.ValidationError{Missing: missing}
	}
	return uc.repo.QueryByScope(ctx, scope, field)
}
