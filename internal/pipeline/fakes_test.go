package pipeline

import (
	"context"

	"github.com/jo12no/lightrail-sydney-alerts/internal/alert"
	"github.com/jo12no/lightrail-sydney-alerts/internal/feed"
)

// FakeSource is a test fake for FeedSource.
type FakeSource struct {
	Doc      *feed.Document
	FetchErr error
	Fetches  int
}

func (f *FakeSource) FetchAlerts(ctx context.Context) (*feed.Document, error) {
	f.Fetches++
	if f.FetchErr != nil {
		return nil, f.FetchErr
	}
	return f.Doc, nil
}

// FakeStore is a test fake for AlertStore backed by an in-memory set.
type FakeStore struct {
	Known       map[string]bool
	Inserted    []alert.Alert
	SchemaCalls int
	ExistsCalls int
	SchemaErr   error
	ExistsErr   error
	InsertErr   error
}

func NewFakeStore(knownIDs ...string) *FakeStore {
	known := make(map[string]bool, len(knownIDs))
	for _, id := range knownIDs {
		known[id] = true
	}
	return &FakeStore{Known: known}
}

func (f *FakeStore) EnsureSchema(ctx context.Context) error {
	f.SchemaCalls++
	return f.SchemaErr
}

func (f *FakeStore) Exists(ctx context.Context, alertID string) (bool, error) {
	f.ExistsCalls++
	if f.ExistsErr != nil {
		return false, f.ExistsErr
	}
	return f.Known[alertID], nil
}

func (f *FakeStore) Insert(ctx context.Context, a alert.Alert) error {
	if f.InsertErr != nil {
		return f.InsertErr
	}
	f.Inserted = append(f.Inserted, a)
	f.Known[a.ID] = true
	return nil
}

// FakeNotifier is a test fake for Notifier.
type FakeNotifier struct {
	Subjects []string
	Bodies   []string
	SendErr  error
}

func (f *FakeNotifier) Send(ctx context.Context, subject, body string) error {
	if f.SendErr != nil {
		return f.SendErr
	}
	f.Subjects = append(f.Subjects, subject)
	f.Bodies = append(f.Bodies, body)
	return nil
}
