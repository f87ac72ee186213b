package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/plotwise/seedtrace"
	"github.com/plotwise/seedtrace/internal/domain"
)

func completeSubmitInput() SubmitInput {
	return SubmitInput{
		Scope:       testScope,
		FarmID:      1,
		FarmName:    "Farm A",
		SectionID:   4,
		SectionName: "North",
		FieldID:     9,
		FieldName:   "F1",
		ScannedCode: "NEW-100",
	}
}

func TestSubmitCreatesDiscardEntry(t *testing.T) {
	repo := newMockRecordRepo()
	pub := &mockPublisher{}
	uc := NewSubmissionUsecase(repo, pub)

	created, err := uc.Submit(actorContext("op2"), completeSubmitInput())
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("created entry has no id")
	}
	if !created.IsDiscarded || created.Status != seedtrace.StatusDiscarded {
		t.Fatalf("entry not marked discarded: %+v", created)
	}
	if created.DiscardedBy != "op2" {
		t.Fatalf("discardedBy = %q", created.DiscardedBy)
	}
	if created.Field != "F1" {
		t.Fatalf("field = %q", created.Field)
	}
	if len(pub.events) != 1 || pub.events[0].Barcode != "NEW-100" {
		t.Fatalf("expected discard event, got %v", pub.events)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected one created record, got %d", len(repo.created))
	}
}

func TestSubmitListsEveryMissingField(t *testing.T) {
	repo := newMockRecordRepo(seedtrace.Record{ID: 1, Barcode: "X"})
	uc := NewSubmissionUsecase(repo, nil)

	input := completeSubmitInput()
	input.SectionID = 0
	input.SectionName = ""
	input.ScannedCode = "   "

	_, err := uc.Submit(context.Background(), input)
	var verr domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	found := map[string]bool{}
	for _, f := range verr.Missing {
		found[f] = true
	}
	if !found["section"] || !found["scannedCode"] {
		t.Fatalf("missing set incomplete: %v", verr.Missing)
	}
	// the store must not have been contacted
	if len(repo.created) != 0 || len(repo.updates) != 0 {
		t.Fatal("store contacted despite invalid input")
	}
}

func TestSubmitRejectsDuplicate(t *testing.T) {
	at := time.Date(2024, 4, 2, 8, 0, 0, 0, time.UTC)
	repo := newMockRecordRepo(seedtrace.Record{
		ID: 5, Barcode: "NEW-100", IsDiscarded: true, DiscardedAt: &at, DiscardedBy: "op1",
	})
	uc := NewSubmissionUsecase(repo, nil)

	_, err := uc.Submit(context.Background(), completeSubmitInput())
	var conflict domain.AlreadyDiscardedError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected AlreadyDiscarded, got %v", err)
	}
	if conflict.DiscardedBy != "op1" {
		t.Fatalf("conflict lacks prior stamp: %+v", conflict)
	}
	if len(repo.created) != 0 {
		t.Fatal("duplicate submission still created an entry")
	}
}

func TestSubmitPersistenceFailure(t *testing.T) {
	repo := newMockRecordRepo()
	repo.failWrite = domain.PersistenceError{Err: errors.New("insert failed")}
	pub := &mockPublisher{}
	uc := NewSubmissionUsecase(repo, pub)

	_, err := uc.Submit(context.Background(), completeSubmitInput())
	if !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
	if len(pub.events) != 0 {
		t.Fatal("no event may be published on persistence failure")
	}
}
