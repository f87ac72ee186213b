package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"

	"github.com/plotwise/seedtrace"
	"github.com/plotwise/seedtrace/internal/domain"
	"github.com/plotwise/seedtrace/internal/usecase"
)

func TestClientFetchRecordsRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"error": "temporary"})
			return
		}
		json.NewEncoder(w).Encode([]seedtrace.Record{{ID: 1, Barcode: "BC-1"}})
	}))
	defer server.Close()

	c := New(server.URL)
	records, err := c.FetchRecords(context.Background(), seedtrace.Scope{Site: "PRSA", Year: "2024", RecordType: "T1"}, "")
	if err != nil {
		t.Fatalf("expected the retry to recover, got %v", err)
	}
	if len(records) != 1 {
		t.Errorf("expected 1 record, got %d", len(records))
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestClientFetchRecordsNoneFoundIsEmpty(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "no records found for scope"})
	}))
	defer server.Close()

	c := New(server.URL)
	records, err := c.FetchRecords(context.Background(), seedtrace.Scope{Site: "PRSA", Year: "2024", RecordType: "T1"}, "")
	if err != nil {
		t.Fatalf("an empty scope is not an error for the caller: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected empty set, got %d", len(records))
	}
	if calls.Load() != 1 {
		t.Errorf("404 must not be retried, got %d attempts", calls.Load())
	}
}

func TestClientMutationIsNeverRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "write failed"})
	}))
	defer server.Close()

	c := New(server.URL)
	_, err := c.SubmitDiscard(context.Background(), usecase.SubmitInput{
		Scope:       seedtrace.Scope{Site: "PRSA", Year: "2024", RecordType: "T1"},
		ScannedCode: "BC-1",
	})
	if err == nil {
		t.Fatal("expected the write failure to surface")
	}
	if calls.Load() != 1 {
		t.Errorf("a mutation must be attempted exactly once, got %d", calls.Load())
	}
	if !errors.Is(err, domain.ErrPersistence) {
		t.Errorf("expected a persistence error, got %v", err)
	}
}

func TestClientConflictKeepsServerMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"error": "barcode BC-9 already discarded by maria"})
	}))
	defer server.Close()

	c := New(server.URL)
	_, err := c.ValidateAndDiscard(context.Background(), seedtrace.Scope{Site: "PRSA", Year: "2024", RecordType: "T1"}, "BC-9")
	if !errors.Is(err, domain.ErrAlreadyDiscarded) {
		t.Fatalf("expected a conflict error, got %v", err)
	}
	if !strings.Contains(err.Error(), "already discarded by maria") {
		t.Errorf("server reason should survive verbatim, got %q", err.Error())
	}
}

func TestClientUnmarkConflictMeansNotDiscarded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"error": "record is not discarded"})
	}))
	defer server.Close()

	c := New(server.URL)
	_, err := c.UnmarkDiscard(context.Background(), seedtrace.Scope{Site: "PRSA", Year: "2024", RecordType: "T1"}, "BC-9")
	if !errors.Is(err, domain.ErrNotDiscarded) {
		t.Fatalf("expected a not-discarded error, got %v", err)
	}
}

func TestClientOptionsAreCached(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		json.NewEncoder(w).Encode([]seedtrace.Option{{ID: 1, Title: "North Farm", Type: seedtrace.OptionTypeFarm}})
	}))
	defer server.Close()

	c := New(server.URL)
	for i := 0; i < 3; i++ {
		options, err := c.FetchOptions(context.Background(), "PRSA")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(options) != 1 {
			t.Fatalf("expected 1 option, got %d", len(options))
		}
	}
	if calls.Load() != 1 {
		t.Errorf("repeated option fetches should hit the cache, got %d calls", calls.Load())
	}
}

func TestClientSendsBearerToken(t *testing.T) {
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(seedtrace.Scope{Site: "PRSA", Year: "2024", RecordType: "T1"})
	}))
	defer server.Close()

	c := New(server.URL).WithToken("op-secret")
	if _, err := c.GetScope(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if auth != "Bearer op-secret" {
		t.Errorf("expected bearer token on the wire, got %q", auth)
	}
}

func TestClientUnreachableServiceIsNormalized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	c := New(server.URL)
	_, err := c.CheckDuplicate(context.Background(), seedtrace.Scope{Site: "PRSA", Year: "2024", RecordType: "T1"}, "BC-1")
	if !errors.Is(err, domain.ErrDependencyUnavailable) {
		t.Errorf("expected a dependency error for a dead endpoint, got %v", err)
	}
}
