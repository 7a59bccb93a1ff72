package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jo12no/lightrail-sydney-alerts/internal/alert"
)

// Runner drives one complete pass of the alert pipeline.
type Runner struct {
	source   FeedSource
	store    AlertStore
	notifier Notifier
	canon    *alert.Canonicalizer
	subject  string
}

// NewRunner creates a runner over the given collaborators.
func NewRunner(source FeedSource, store AlertStore, notifier Notifier, canon *alert.Canonicalizer, subject string) *Runner {
	return &Runner{
		source:   source,
		store:    store,
		notifier: notifier,
		canon:    canon,
		subject:  subject,
	}
}

// Run executes one pipeline pass. The invocation argument is free-form
// caller context and is only logged.
//
// Mapped outcomes (fetch failure, malformed record, notify failure, success)
// come back in the Result with a nil error. Store failures are returned as
// a non-nil error instead: they must propagate, because treating an
// unreachable store as "not known" would corrupt deduplication.
func (r *Runner) Run(ctx context.Context, invocation string) (Result, error) {
	runID := uuid.NewString()
	slog.Info("Starting alert run", "run_id", runID, "invocation", invocation)

	doc, err := r.source.FetchAlerts(ctx)
	if err != nil {
		slog.Error("No response received from the API", "run_id", runID, "error", err)
		return abortedResult(OutcomeFetchFailed, "Error: The API response is invalid"), nil
	}

	total := len(doc.Entities)
	slog.Info("Fetched feed", "run_id", runID, "entities", total)

	if err := r.store.EnsureSchema(ctx); err != nil {
		return Result{}, err
	}

	var pending []alert.Alert
	for i, entity := range doc.Entities {
		a, err := r.canon.Canonicalize(entity)
		if err != nil {
			// One malformed record aborts the whole pass: a broken upstream
			// schema makes every downstream count untrustworthy.
			slog.Error("Failed to canonicalize entity",
				"run_id", runID,
				"entity_id", entity.ID,
				"error", err,
			)
			return abortedResult(OutcomeMalformedRecord,
				fmt.Sprintf("Error: Unable to process result %s", entity.ID)), nil
		}

		slog.Info("Processed entity",
			"run_id", runID,
			"position", i+1,
			"remaining", total-i-1,
			"alert_id", a.ID,
			"relevant", a.Relevant,
		)

		if !a.Relevant {
			slog.Info("Skipping alert, route not impacted", "run_id", runID, "alert_id", a.ID)
			continue
		}

		known, err := r.store.Exists(ctx, a.ID)
		if err != nil {
			return Result{}, err
		}
		if known {
			continue
		}

		slog.Info("New alert found", "run_id", runID, "alert_id", a.ID)
		if err := r.store.Insert(ctx, a); err != nil {
			return Result{}, err
		}
		pending = append(pending, a)
	}

	if len(pending) == 0 {
		slog.Info("No new alerts found", "run_id", runID)
		return okResult(), nil
	}

	slog.Info("Sending notification", "run_id", runID, "alerts", len(pending))
	if err := r.notifier.Send(ctx, r.subject, RenderDigest(pending)); err != nil {
		// Persisted rows stay persisted; the next run dedups them and the
		// operator can inspect the store for what this email would have said.
		slog.Error("Failed to send notification", "run_id", runID, "error", err)
		return abortedResult(OutcomeNotifyFailed, "Error: Unable to send email."), nil
	}

	slog.Info("Run complete", "run_id", runID)
	return okResult(), nil
}
