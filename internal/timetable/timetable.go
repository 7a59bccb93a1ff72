// Package timetable checks that a configured departure appears in the
// day's planned departures and alerts the operator when it does not.
package timetable

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jo12no/lightrail-sydney-alerts/internal/feed"
	"github.com/jo12no/lightrail-sydney-alerts/internal/pipeline"
)

// DepartureSource fetches planned departures for a stop.
type DepartureSource interface {
	FetchDepartures(ctx context.Context, stationID string) (*feed.DepartureDocument, error)
}

// Checker verifies one scheduled departure exists for the current day.
type Checker struct {
	source   DepartureSource
	notifier pipeline.Notifier
	cfg      Config
	now      func() time.Time
}

// Config holds the departure being watched.
type Config struct {
	StationID string
	Hour      int
	Minute    int
	Location  *time.Location
	Subject   string
	AlertBody string // body sent when the departure is missing
}

// NewChecker creates a checker over the given collaborators.
func NewChecker(source DepartureSource, notifier pipeline.Notifier, cfg Config) *Checker {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Checker{
		source:   source,
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
	}
}

// TargetTime converts the configured civil departure time for today into
// a UTC "HH:MM" string. Daylight savings shifts are handled by the civil
// timezone conversion.
func (c *Checker) TargetTime() string {
	now := c.now().In(c.cfg.Location)
	civil := time.Date(now.Year(), now.Month(), now.Day(), c.cfg.Hour, c.cfg.Minute, 0, 0, c.cfg.Location)
	return civil.UTC().Format("15:04")
}

// Run executes one timetable check. The invocation argument is free-form
// caller context and is only logged.
func (c *Checker) Run(ctx context.Context, invocation string) (pipeline.Result, error) {
	runID := uuid.NewString()
	slog.Info("Starting timetable check", "run_id", runID, "invocation", invocation)

	doc, err := c.source.FetchDepartures(ctx, c.cfg.StationID)
	if err != nil {
		slog.Error("No response received from the API", "run_id", runID, "error", err)
		return pipeline.Result{
			Outcome: pipeline.OutcomeFetchFailed,
			Message: "Error: The API response is invalid",
			Code:    500,
		}, nil
	}

	target := c.TargetTime()
	slog.Info("Checking planned departures",
		"run_id", runID,
		"civil_time", fmt.Sprintf("%d:%02d", c.cfg.Hour, c.cfg.Minute),
		"utc_target", target,
		"stop_events", len(doc.StopEvents),
	)

	found := false
	for i, ev := range doc.StopEvents {
		slog.Info("Planned departure", "run_id", runID, "count", i, "departure", ev.DepartureTimePlanned)
		if strings.Contains(ev.DepartureTimePlanned, target) {
			found = true
			slog.Info("Found target time in planned departures, no email to send", "run_id", runID)
			break
		}
	}

	if !found {
		slog.Info("No matching departure time was found, sending alert email", "run_id", runID)
		if err := c.notifier.Send(ctx, c.cfg.Subject, c.cfg.AlertBody); err != nil {
			slog.Error("Failed to send notification", "run_id", runID, "error", err)
			return pipeline.Result{
				Outcome: pipeline.OutcomeNotifyFailed,
				Message: "Error: Unable to send email.",
				Code:    500,
			}, nil
		}
	}

	slog.Info("Timetable check complete", "run_id", runID)
	return pipeline.Result{Outcome: pipeline.OutcomeOK, Message: "Complete.", Code: 200}, nil
}
