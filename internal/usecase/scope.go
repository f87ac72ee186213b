package usecase

import (
	"context"

	"github.com/plotwise/seedtrace"
	"github.com/plotwise/seedtrace/internal/domain"
)

// ScopeUsecase resolves the active site/year/record-type per operator,
// falling back to the deployment defaults.
type ScopeUsecase struct {
	repo     ScopeRepository
	defaults seedtrace.Scope
}

func NewScopeUsecase(repo ScopeRepository, defaults seedtrace.Scope) *ScopeUsecase {
	return &ScopeUsecase{repo: repo, defaults: defaults}
}

func (uc *ScopeUsecase) Get(ctx context.Context, actor string) (seedtrace.Scope, error) {
	if uc.repo != nil {
		scope, ok, err := uc.repo.Get(ctx, actor)
		if err != nil {
			return seedtrace.Scope{}, err
		}
		if ok {
			return scope, nil
		}
	}
	return uc.defaults, nil
}

func (uc *ScopeUsecase) Set(ctx context.Context, actor string, scope seedtrace.Scope) error {
	if missing := scope.Missing(); len(missing) > 0 {
		return domain.ValidationError{Missing: missing}
	}
	return uc.repo.Set(ctx, actor, scope)
}
