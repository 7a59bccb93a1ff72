package timetable

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jo12no/lightrail-sydney-alerts/internal/feed"
	"github.com/jo12no/lightrail-sydney-alerts/internal/pipeline"
)

type fakeDepartures struct {
	doc      *feed.DepartureDocument
	fetchErr error
	station  string
}

func (f *fakeDepartures) FetchDepartures(ctx context.Context, stationID string) (*feed.DepartureDocument, error) {
	f.station = stationID
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.doc, nil
}

type fakeNotifier struct {
	subjects []string
	bodies   []string
	sendErr  error
}

func (f *fakeNotifier) Send(ctx context.Context, subject, body string) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.subjects = append(f.subjects, subject)
	f.bodies = append(f.bodies, body)
	return nil
}

func newTestChecker(source DepartureSource, notifier pipeline.Notifier, loc *time.Location, now time.Time) *Checker {
	c := NewChecker(source, notifier, Config{
		StationID: "220322",
		Hour:      7,
		Minute:    50,
		Location:  loc,
		Subject:   "Lightrail timetable alert",
		AlertBody: "No 7:50 departure found",
	})
	c.now = func() time.Time { return now }
	return c
}

func TestChecker_TargetTime(t *testing.T) {
	sydney, err := time.LoadLocation("Australia/Sydney")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}

	tests := []struct {
		name string
		now  time.Time
		want string
	}{
		{
			// AEST is UTC+10 outside daylight savings.
			name: "winter offset",
			now:  time.Date(2024, time.June, 3, 1, 0, 0, 0, time.UTC),
			want: "21:50",
		},
		{
			// AEDT is UTC+11 during daylight savings.
			name: "summer offset",
			now:  time.Date(2024, time.December, 2, 1, 0, 0, 0, time.UTC),
			want: "20:50",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestChecker(&fakeDepartures{}, &fakeNotifier{}, sydney, tt.now)
			if got := c.TargetTime(); got != tt.want {
				t.Errorf("TargetTime() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestChecker_Run(t *testing.T) {
	// Fixed UTC clock keeps the target at 07:50 UTC.
	now := time.Date(2024, time.June, 3, 1, 0, 0, 0, time.UTC)

	t.Run("departure present, no email", func(t *testing.T) {
		source := &fakeDepartures{doc: &feed.DepartureDocument{StopEvents: []feed.StopEvent{
			{DepartureTimePlanned: "2024-06-03T07:10:00Z"},
			{DepartureTimePlanned: "2024-06-03T07:50:00Z"},
		}}}
		notifier := &fakeNotifier{}
		c := newTestChecker(source, notifier, time.UTC, now)

		res, err := c.Run(context.Background(), "test")
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if res.Code != 200 || res.Message != "Complete." {
			t.Errorf("Run() = %+v, want success", res)
		}
		if source.station != "220322" {
			t.Errorf("station = %q, want configured stop", source.station)
		}
		if len(notifier.bodies) != 0 {
			t.Error("no email expected when the departure is present")
		}
	})

	t.Run("departure missing, email sent", func(t *testing.T) {
		source := &fakeDepartures{doc: &feed.DepartureDocument{StopEvents: []feed.StopEvent{
			{DepartureTimePlanned: "2024-06-03T07:10:00Z"},
		}}}
		notifier := &fakeNotifier{}
		c := newTestChecker(source, notifier, time.UTC, now)

		res, err := c.Run(context.Background(), "test")
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if res.Code != 200 {
			t.Errorf("Run() = %+v, want success", res)
		}
		if len(notifier.bodies) != 1 || notifier.bodies[0] != "No 7:50 departure found" {
			t.Errorf("bodies = %v, want one alert email", notifier.bodies)
		}
		if notifier.subjects[0] != "Lightrail timetable alert" {
			t.Errorf("subject = %q", notifier.subjects[0])
		}
	})

	t.Run("empty stop events, email sent", func(t *testing.T) {
		source := &fakeDepartures{doc: &feed.DepartureDocument{}}
		notifier := &fakeNotifier{}
		c := newTestChecker(source, notifier, time.UTC, now)

		res, err := c.Run(context.Background(), "test")
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if res.Code != 200 || len(notifier.bodies) != 1 {
			t.Errorf("Run() = %+v with %d emails, want success and one email", res, len(notifier.bodies))
		}
	})

	t.Run("fetch failure", func(t *testing.T) {
		source := &fakeDepartures{fetchErr: feed.ErrFetch}
		notifier := &fakeNotifier{}
		c := newTestChecker(source, notifier, time.UTC, now)

		res, err := c.Run(context.Background(), "test")
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if res.Outcome != pipeline.OutcomeFetchFailed || res.Code != 500 {
			t.Errorf("Run() = %+v, want fetch_failed abort", res)
		}
		if len(notifier.bodies) != 0 {
			t.Error("no email expected when fetch fails")
		}
	})

	t.Run("send failure", func(t *testing.T) {
		source := &fakeDepartures{doc: &feed.DepartureDocument{}}
		notifier := &fakeNotifier{sendErr: errors.New("smtp down")}
		c := newTestChecker(source, notifier, time.UTC, now)

		res, err := c.Run(context.Background(), "test")
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if res.Outcome != pipeline.OutcomeNotifyFailed || res.Message != "Error: Unable to send email." {
			t.Errorf("Run() = %+v, want notify_failed abort", res)
		}
	})
}
