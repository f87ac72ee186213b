package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/plotwise/seedtrace"
	"github.com/plotwise/seedtrace/internal/domain"
)

// SubmitInput carries a complete scan submission: the resolved selector
// state plus the scanned code and the active scope.
type SubmitInput struct {
	Scope seedtrace.Scope `json:"scope"`

	FarmID      int64  `json:"farmID"`
	FarmName    string `json:"farmName"`
	SectionID   int64  `json:"sectionID"`
	SectionName string `json:"sectionName"`
	FieldID     int64  `json:"fieldID"`
	FieldName   string `json:"fieldName"`

	ScannedCode string `json:"scannedCode"`
}

// missingFields lists every absent input at once so the operator sees one
// combined message.
func (in SubmitInput) missingFields() []string {
	missing := in.Scope.Missing()
	if in.FarmID == 0 || strings.TrimSpace(in.FarmName) == "" {
		missing = append(missing, "farm")
	}
	if in.SectionID == 0 || strings.TrimSpace(in.SectionName) == "" {
		missing = append(missing, "section")
	}
	if in.FieldID == 0 || strings.TrimSpace(in.FieldName) == "" {
		missing = append(missing, "field")
	}
	if strings.TrimSpace(in.ScannedCode) == "" {
		missing = append(missing, "scannedCode")
	}
	return missing
}

// SubmissionUsecase persists new discard entries scanned against a selected
// farm/section/field.
type SubmissionUsecase struct {
	repo   RecordRepository
	signal EventPublisher
	now    func() time.Time
}

func NewSubmissionUsecase(repo RecordRepository, signal EventPublisher) *SubmissionUsecase {
	return &SubmissionUsecase{
		repo:   repo,
		signal: signal,
		now:    time.Now,
	}
}

// Submit validates the input, rejects duplicates, and persists a new discard
// entry. The store is never contacted while required fields are missing.
func (uc *SubmissionUsecase) Submit(ctx context.Context, input SubmitInput) (*seedtrace.Record, error) {
	if missing := input.missingFields(); len(missing) > 0 {
		return nil, domain.ValidationError{Missing: missing}
	}

	existing, err := uc.repo.FindByBarcode(ctx, input.Scope, input.ScannedCode)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if existing != nil && existing.IsDiscarded {
		return nil, domain.AlreadyDiscardedError{
			Barcode:     existing.Barcode,
			DiscardedAt: existing.DiscardedAt,
			DiscardedBy: existing.DiscardedBy,
		}
	}

	now := uc.now().UTC()
	actor := domain.ActorFromContext(ctx)

	entry := seedtrace.Record{
		Barcode:     strings.TrimSpace(input.ScannedCode),
		Field:       strings.TrimSpace(input.FieldName),
		IsDiscarded: true,
		DiscardedAt: &now,
		DiscardedBy: actor,
		Extra: map[string]any{
			"farmID":      input.FarmID,
			"farmName":    input.FarmName,
			"sectionID":   input.SectionID,
			"sectionName": input.SectionName,
			"fieldID":     input.FieldID,
		},
	}

	created, err := uc.repo.Create(ctx, input.Scope, entry)
	if err != nil {
		return nil, err
	}

	if uc.signal != nil {
		event := seedtrace.Event{
			Type:     seedtrace.EventTypeDiscard,
			Scope:    input.Scope,
			RecordID: created.ID,
			Barcode:  seedtrace.NormalizeBarcode(created.Barcode),
			Status:   created.Status,
			At:       now,
			By:       actor,
		}
		if err := uc.signal.Publish(ctx, input.Scope.Channel(), event); err != nil {
			slog.WarnContext(
				ctx, "failed to publish submission event",
				slog.String("error", err.Error()),
				slog.String("module", "submission"),
			)
		}
	}

	return &created, nil
}
