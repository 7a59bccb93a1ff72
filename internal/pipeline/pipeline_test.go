package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jo12no/lightrail-sydney-alerts/internal/alert"
	"github.com/jo12no/lightrail-sydney-alerts/internal/feed"
)

const testSubject = "Lightrail status alert"

func entityFor(id, routeID string) feed.Entity {
	return feed.Entity{
		ID: id,
		Alert: &feed.Body{
			URL:             feed.Translated{Translation: []feed.Translation{{Text: "https://example.org/" + id}}},
			HeaderText:      feed.Translated{Translation: []feed.Translation{{Text: "Alert " + id}}},
			DescriptionText: feed.Translated{Translation: []feed.Translation{{Text: "Details " + id}}},
			ActivePeriod:    []feed.Period{{Start: json.Number("0"), End: json.Number("3600")}},
			InformedEntity:  []feed.InformedEntity{{RouteID: routeID, DirectionID: 0}},
		},
	}
}

func newTestRunner(source *FakeSource, store *FakeStore, notifier *FakeNotifier) *Runner {
	return NewRunner(source, store, notifier, alert.NewCanonicalizer("X-1", time.UTC), testSubject)
}

func TestRunner_Run_EndToEnd(t *testing.T) {
	doc := &feed.Document{Entities: []feed.Entity{entityFor("42", "X-1")}}
	source := &FakeSource{Doc: doc}
	store := NewFakeStore()
	notifier := &FakeNotifier{}
	runner := newTestRunner(source, store, notifier)

	res, err := runner.Run(context.Background(), "test run")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Message != "Complete." || res.Code != 200 || res.Outcome != OutcomeOK {
		t.Errorf("Run() = %+v, want Complete./200/ok", res)
	}
	if len(store.Inserted) != 1 || store.Inserted[0].ID != "42" {
		t.Errorf("Inserted = %+v, want one insert for alert 42", store.Inserted)
	}
	if len(notifier.Bodies) != 1 {
		t.Fatalf("Sent %d notifications, want 1", len(notifier.Bodies))
	}
	if !strings.Contains(notifier.Bodies[0], "alert_id: 42") {
		t.Errorf("notification body %q missing alert_id line", notifier.Bodies[0])
	}
	if notifier.Subjects[0] != testSubject {
		t.Errorf("subject = %q, want %q", notifier.Subjects[0], testSubject)
	}
}

func TestRunner_Run_SecondRunIsIdempotent(t *testing.T) {
	doc := &feed.Document{Entities: []feed.Entity{entityFor("42", "X-1")}}
	source := &FakeSource{Doc: doc}
	store := NewFakeStore()
	notifier := &FakeNotifier{}
	runner := newTestRunner(source, store, notifier)

	for i := 0; i < 2; i++ {
		res, err := runner.Run(context.Background(), "repeat")
		if err != nil {
			t.Fatalf("Run() #%d error = %v", i+1, err)
		}
		if res.Code != 200 {
			t.Fatalf("Run() #%d = %+v, want 200", i+1, res)
		}
	}

	if len(store.Inserted) != 1 {
		t.Errorf("Inserted %d rows over two runs, want 1", len(store.Inserted))
	}
	if len(notifier.Bodies) != 1 {
		t.Errorf("Sent %d notifications over two runs, want 1", len(notifier.Bodies))
	}
}

func TestRunner_Run_FetchFailure(t *testing.T) {
	source := &FakeSource{FetchErr: feed.ErrFetch}
	store := NewFakeStore()
	notifier := &FakeNotifier{}
	runner := newTestRunner(source, store, notifier)

	res, err := runner.Run(context.Background(), "test")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Message != "Error: The API response is invalid" || res.Code != 500 {
		t.Errorf("Run() = %+v, want invalid-response error with 500", res)
	}
	if res.Outcome != OutcomeFetchFailed {
		t.Errorf("Outcome = %v, want %v", res.Outcome, OutcomeFetchFailed)
	}
	if store.SchemaCalls != 0 || store.ExistsCalls != 0 {
		t.Error("store must not be touched when fetch fails")
	}
	if len(notifier.Bodies) != 0 {
		t.Error("mail transport must not be invoked when fetch fails")
	}
}

func TestRunner_Run_MalformedRecordAbortsWholeRun(t *testing.T) {
	malformed := feed.Entity{ID: "", Alert: &feed.Body{}}
	doc := &feed.Document{Entities: []feed.Entity{
		entityFor("1", "X-1"),
		malformed,
		entityFor("3", "X-1"),
	}}
	source := &FakeSource{Doc: doc}
	store := NewFakeStore()
	notifier := &FakeNotifier{}
	runner := newTestRunner(source, store, notifier)

	res, err := runner.Run(context.Background(), "test")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Outcome != OutcomeMalformedRecord || res.Code != 500 {
		t.Errorf("Run() = %+v, want malformed_record abort with 500", res)
	}
	// Entity 1 was persisted before the abort; entity 3 was never reached
	// and nothing was notified.
	if len(store.Inserted) != 1 || store.Inserted[0].ID != "1" {
		t.Errorf("Inserted = %+v, want only alert 1", store.Inserted)
	}
	if len(notifier.Bodies) != 0 {
		t.Error("no notification expected on aborted run")
	}
}

func TestRunner_Run_SkipsIrrelevantAndKnown(t *testing.T) {
	doc := &feed.Document{Entities: []feed.Entity{
		entityFor("known", "X-1"),
		entityFor("other-route", "Y-9"),
		entityFor("fresh", "X-1"),
	}}
	source := &FakeSource{Doc: doc}
	store := NewFakeStore("known")
	notifier := &FakeNotifier{}
	runner := newTestRunner(source, store, notifier)

	res, err := runner.Run(context.Background(), "test")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Code != 200 {
		t.Fatalf("Run() = %+v, want success", res)
	}
	if len(store.Inserted) != 1 || store.Inserted[0].ID != "fresh" {
		t.Errorf("Inserted = %+v, want only the fresh alert", store.Inserted)
	}
	// Irrelevant entities never reach the novelty check.
	if store.ExistsCalls != 2 {
		t.Errorf("ExistsCalls = %d, want 2 (known + fresh)", store.ExistsCalls)
	}
	if len(notifier.Bodies) != 1 || strings.Contains(notifier.Bodies[0], "known") {
		t.Errorf("notification = %v, want one digest without the known alert", notifier.Bodies)
	}
}

func TestRunner_Run_EmptyPendingSendsNothing(t *testing.T) {
	doc := &feed.Document{Entities: []feed.Entity{entityFor("known", "X-1")}}
	source := &FakeSource{Doc: doc}
	store := NewFakeStore("known")
	notifier := &FakeNotifier{SendErr: errors.New("must not be called")}
	runner := newTestRunner(source, store, notifier)

	res, err := runner.Run(context.Background(), "test")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Code != 200 || res.Message != "Complete." {
		t.Errorf("Run() = %+v, want success without touching the notifier", res)
	}
}

func TestRunner_Run_NotifyFailureAfterPersist(t *testing.T) {
	doc := &feed.Document{Entities: []feed.Entity{entityFor("42", "X-1")}}
	source := &FakeSource{Doc: doc}
	store := NewFakeStore()
	notifier := &FakeNotifier{SendErr: errors.New("smtp: connection refused")}
	runner := newTestRunner(source, store, notifier)

	res, err := runner.Run(context.Background(), "test")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Outcome != OutcomeNotifyFailed || res.Message != "Error: Unable to send email." || res.Code != 500 {
		t.Errorf("Run() = %+v, want notify_failed abort", res)
	}
	// Persistence is not rolled back on notification failure.
	if len(store.Inserted) != 1 {
		t.Errorf("Inserted = %+v, persisted row must survive send failure", store.Inserted)
	}
}

func TestRunner_Run_StoreErrorsPropagate(t *testing.T) {
	storeErr := errors.New("store: unavailable")

	tests := []struct {
		name  string
		setup func(f *FakeStore)
	}{
		{
			name:  "schema provisioning failure",
			setup: func(f *FakeStore) { f.SchemaErr = storeErr },
		},
		{
			name:  "existence check failure",
			setup: func(f *FakeStore) { f.ExistsErr = storeErr },
		},
		{
			name:  "insert failure",
			setup: func(f *FakeStore) { f.InsertErr = storeErr },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := &feed.Document{Entities: []feed.Entity{entityFor("42", "X-1")}}
			store := NewFakeStore()
			tt.setup(store)
			notifier := &FakeNotifier{}
			runner := newTestRunner(&FakeSource{Doc: doc}, store, notifier)

			_, err := runner.Run(context.Background(), "test")
			if !errors.Is(err, storeErr) {
				t.Errorf("Run() error = %v, want store error to propagate", err)
			}
			if len(notifier.Bodies) != 0 {
				t.Error("no notification expected when the store fails")
			}
		})
	}
}
