package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/plotwise/seedtrace"
	"github.com/plotwise/seedtrace/internal/domain"
	"github.com/plotwise/seedtrace/internal/infra/repository"
)

// ValidatorUsecase resolves a scanned code within a scope, checks the
// discard status, and applies or rejects the discard transition. Barcode
// matching is case/whitespace-insensitive everywhere.
type ValidatorUsecase struct {
	repo   RecordRepository
	signal EventPublisher
	now    func() time.Time
}

func NewValidatorUsecase(repo RecordRepository, signal EventPublisher) *ValidatorUsecase {
	return &ValidatorUsecase{
		repo:   repo,
		signal: signal,
		now:    time.Now,
	}
}

func validateScan(scope seedtrace.Scope, code string) error {
	missing := scope.Missing()
	if strings.TrimSpace(code) == "" {
		missing = append(missing, "barcode")
	}
	if len(missing) > 0 {
		return domain.ValidationError{Missing: missing}
	}
	return nil
}

// ValidateAndDiscard finds the record matching the scanned code and marks it
// discarded. Re-scanning a discarded barcode is rejected without mutation.
func (uc *ValidatorUsecase) ValidateAndDiscard(ctx context.Context, scope seedtrace.Scope, code string) (*seedtrace.Record, error) {
	if err := validateScan(scope, code); err != nil {
		return nil, err
	}

	record, err := uc.repo.FindByBarcode(ctx, scope, code)
	if err != nil {
		return nil, err
	}

	if record.IsDiscarded {
		return nil, domain.AlreadyDiscardedError{
			Barcode:     record.Barcode,
			DiscardedAt: record.DiscardedAt,
			DiscardedBy: record.DiscardedBy,
		}
	}

	now := uc.now().UTC()
	actor := domain.ActorFromContext(ctx)
	err = uc.repo.UpdateByID(ctx, record.Identity(), repository.DiscardPatch{
		IsDiscarded: true,
		DiscardedAt: &now,
		DiscardedBy: actor,
	})
	if err != nil {
		return nil, err
	}

	record.IsDiscarded = true
	record.DiscardedAt = &now
	record.DiscardedBy = actor
	updated := seedtrace.Normalize(*record)

	uc.publish(ctx, seedtrace.Event{
		Type:     seedtrace.EventTypeDiscard,
		Scope:    scope,
		RecordID: updated.ID,
		Barcode:  seedtrace.NormalizeBarcode(updated.Barcode),
		Status:   updated.Status,
		At:       now,
		By:       actor,
	})

	return &updated, nil
}

// UnmarkDiscard clears the discard state. Unmarking a pending record is an
// explicit rejection, not a no-op.
func (uc *ValidatorUsecase) UnmarkDiscard(ctx context.Context, scope seedtrace.Scope, code string) (*seedtrace.Record, error) {
	if err := validateScan(scope, code); err != nil {
		return nil, err
	}

	record, err := uc.repo.FindByBarcode(ctx, scope, code)
	if err != nil {
		return nil, err
	}

	if !record.IsDiscarded {
		return nil, domain.NotDiscardedError{Barcode: record.Barcode}
	}

	err = uc.repo.UpdateByID(ctx, record.Identity(), repository.DiscardPatch{
		IsDiscarded: false,
		DiscardedAt: nil,
		DiscardedBy: "",
	})
	if err != nil {
		return nil, err
	}

	record.IsDiscarded = false
	record.DiscardedAt = nil
	record.DiscardedBy = ""
	updated := seedtrace.Normalize(*record)

	uc.publish(ctx, seedtrace.Event{
		Type:     seedtrace.EventTypeUnmark,
		Scope:    scope,
		RecordID: updated.ID,
		Barcode:  seedtrace.NormalizeBarcode(updated.Barcode),
		Status:   updated.Status,
		At:       uc.now().UTC(),
		By:       domain.ActorFromContext(ctx),
	})

	return &updated, nil
}

// CheckStatus answers the duplicate question without mutating anything.
func (uc *ValidatorUsecase) CheckStatus(ctx context.Context, scope seedtrace.Scope, code string) (seedtrace.StatusResult, error) {
	if err := validateScan(scope, code); err != nil {
		return seedtrace.StatusResult{}, err
	}

	record, err := uc.repo.FindByBarcode(ctx, scope, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return seedtrace.StatusResult{Exists: false, Discarded: false}, nil
		}
		return seedtrace.StatusResult{}, err
	}

	return seedtrace.StatusResult{
		Exists:    true,
		Discarded: record.IsDiscarded,
		Record:    record,
	}, nil
}

// BatchItem is the per-barcode outcome of a bulk validation.
type BatchItem struct {
	Barcode string            `json:"barcode"`
	Record  *seedtrace.Record `json:"record,omitempty"`
	Reason  string            `json:"reason,omitempty"`
}

// BatchResult partitions bulk outcomes. One failing item never aborts the
// rest.
type BatchResult struct {
	Succeeded        []BatchItem `json:"succeeded"`
	AlreadyDiscarded []BatchItem `json:"alreadyDiscarded"`
	NotFound         []BatchItem `json:"notFound"`
	OtherErrors      []BatchItem `json:"otherErrors"`
}

// ValidateBatch applies ValidateAndDiscard to each code independently.
func (uc *ValidatorUsecase) ValidateBatch(ctx context.Context, scope seedtrace.Scope, codes []string) BatchResult {
	var result BatchResult
	for _, code := range codes {
		record, err := uc.ValidateAndDiscard(ctx, scope, code)
		switch {
		case err == nil:
			result.Succeeded = append(result.Succeeded, BatchItem{Barcode: code, Record: record})
		case errors.Is(err, domain.ErrAlreadyDiscarded):
			result.AlreadyDiscarded = append(result.AlreadyDiscarded, BatchItem{Barcode: code, Reason: err.Error()})
		case errors.Is(err, domain.ErrNotFound):
			result.NotFound = append(result.NotFound, BatchItem{Barcode: code, Reason: err.Error()})
		default:
			result.OtherErrors = append(result.OtherErrors, BatchItem{Barcode: code, Reason: err.Error()})
		}
	}
	return result
}

func (uc *ValidatorUsecase) publish(ctx context.Context, event seedtrace.Event) {
	if uc.signal == nil {
		return
	}
	if err := uc.signal.Publish(ctx, event.Scope.Channel(), event); err != nil {
		slog.WarnContext(
			ctx, "failed to publish discard event",
			slog.String("error", err.Error()),
			slog.String("module", "validator"),
		)
	}
}
