package client

import (
	"context"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/plotwise/seedtrace"
	"github.com/plotwise/seedtrace/internal/domain"
	"github.com/plotwise/seedtrace/internal/usecase"
)

// FlowState is the scan form's lifecycle position.
type FlowState int

const (
	FlowIdle FlowState = iota
	FlowValidating
	FlowConflict
	FlowSubmitting
	FlowSuccess
	FlowFailed
)

func (s FlowState) String() string {
	switch s {
	case FlowIdle:
		return "idle"
	case FlowValidating:
		return "validating"
	case FlowConflict:
		return "conflict"
	case FlowSubmitting:
		return "submitting"
	case FlowSuccess:
		return "success"
	case FlowFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// FlowListener observes state changes. Detail carries the failure reason,
// verbatim from the server, or the conflict description.
type FlowListener func(state FlowState, detail string)

// Flow runs one scan from entry to stored record. It validates locally
// first, checks the code against the store, surfaces a conflict for the
// operator to acknowledge, and only then writes. A submission in flight
// blocks re-entry until it settles.
type Flow struct {
	svc      Service
	selector *Selector
	table    *Table
	listener FlowListener

	mu       sync.Mutex
	state    FlowState
	inflight bool
}

func NewFlow(svc Service, selector *Selector, table *Table, listener FlowListener) *Flow {
	return &Flow{svc: svc, selector: selector, table: table, listener: listener}
}

// State returns the current lifecycle position.
func (f *Flow) State() FlowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Flow) transition(state FlowState, detail string) {
	f.mu.Lock()
	f.state = state
	f.mu.Unlock()
	if f.listener != nil {
		f.listener(state, detail)
	}
}

// Submit drives a scanned code through validation and storage. Missing
// inputs are reported together in one pass, a known-discarded code parks
// the flow in Conflict until acknowledged, and any store failure leaves
// the form intact with the server's reason.
func (f *Flow) Submit(ctx context.Context, scope seedtrace.Scope, code string) error {
	f.mu.Lock()
	if f.inflight {
		f.mu.Unlock()
		return errors.New("submission already in progress")
	}
	f.inflight = true
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.inflight = false
		f.mu.Unlock()
	}()

	input := f.buildInput(scope, code)

	f.transition(FlowValidating, "")

	if missing := f.missingInputs(input); len(missing) > 0 {
		detail := "missing required input: " + strings.Join(missing, ", ")
		f.transition(FlowFailed, detail)
		return domain.ValidationError{Missing: missing}
	}

	status, err := f.svc.CheckDuplicate(ctx, scope, input.ScannedCode)
	if err != nil {
		f.transition(FlowFailed, err.Error())
		return err
	}
	if status.Exists && status.Discarded {
		f.transition(FlowConflict, "already recorded as discarded: "+seedtrace.NormalizeBarcode(code))
		conflict := domain.AlreadyDiscardedError{Barcode: seedtrace.NormalizeBarcode(code)}
		if status.Record != nil {
			conflict.DiscardedAt = status.Record.DiscardedAt
			conflict.DiscardedBy = status.Record.DiscardedBy
		}
		return conflict
	}

	return f.store(ctx, input)
}

// AcknowledgeConflict dismisses a parked conflict and returns the flow to
// idle without writing anything.
func (f *Flow) AcknowledgeConflict() {
	f.mu.Lock()
	if f.state != FlowConflict {
		f.mu.Unlock()
		return
	}
	f.mu.Unlock()
	f.transition(FlowIdle, "")
}

func (f *Flow) store(ctx context.Context, input usecase.SubmitInput) error {
	f.transition(FlowSubmitting, "")

	if _, err := f.svc.SubmitDiscard(ctx, input); err != nil {
		f.transition(FlowFailed, err.Error())
		return err
	}

	f.transition(FlowSuccess, "")
	f.reset(ctx, input.Scope)
	f.transition(FlowIdle, "")
	return nil
}

// reset clears the form for the next scan and refreshes the table so the
// new record shows up immediately.
func (f *Flow) reset(ctx context.Context, scope seedtrace.Scope) {
	if f.selector != nil {
		f.selector.Reset()
	}
	if f.table == nil {
		return
	}
	records, err := f.svc.FetchRecords(ctx, scope, "")
	if err != nil {
		return
	}
	f.table.Load(records)
}

func (f *Flow) buildInput(scope seedtrace.Scope, code string) usecase.SubmitInput {
	input := usecase.SubmitInput{Scope: scope, ScannedCode: strings.TrimSpace(code)}
	if f.selector == nil {
		return input
	}
	farm := f.selector.Selected(LevelFarm)
	section := f.selector.Selected(LevelSection)
	field := f.selector.Selected(LevelField)
	input.FarmID, input.FarmName = farm.ID, farm.Title
	input.SectionID, input.SectionName = section.ID, section.Title
	input.FieldID, input.FieldName = field.ID, field.Title
	return input
}

// missingInputs collects every absent required input at once so the
// operator fixes the form in one round.
func (f *Flow) missingInputs(input usecase.SubmitInput) []string {
	var missing []string
	missing = append(missing, input.Scope.Missing()...)
	if input.FarmID == 0 {
		missing = append(missing, "farm")
	}
	if input.SectionID == 0 {
		missing = append(missing, "section")
	}
	if input.FieldID == 0 {
		missing = append(missing, "field")
	}
	if input.ScannedCode == "" {
		missing = append(missing, "barcode")
	}
	return missing
}
