// Package alert provides the canonical service-alert record and the strict
// canonicalizer that derives it from a raw feed entity.
package alert

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jo12no/lightrail-sydney-alerts/internal/feed"
)

// NullDate is the sentinel stored when an active-period timestamp is absent
// or cannot be parsed.
const NullDate = "NULL"

// dateLayout is the normalized timestamp layout persisted to the store.
const dateLayout = "2006-01-02 15:04:05"

// Alert is the canonical record derived from one feed entity.
type Alert struct {
	ID          string
	URL         string
	Title       string
	Description string
	StartDate   string
	EndDate     string
	Relevant    bool
}

// MalformedRecordError reports a feed entity missing a required field.
// Timestamps are not required fields; they degrade to NullDate instead.
type MalformedRecordError struct {
	EntityID string
	Field    string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("alert: entity %q missing required field %q", e.EntityID, e.Field)
}

// Canonicalizer converts raw feed entities into canonical Alerts for one
// deployment's monitored route.
type Canonicalizer struct {
	routeID string
	loc     *time.Location
}

// NewCanonicalizer creates a canonicalizer for the given route of interest.
// Timestamps are rendered in loc.
func NewCanonicalizer(routeID string, loc *time.Location) *Canonicalizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Canonicalizer{routeID: routeID, loc: loc}
}

// Canonicalize converts one raw entity into a canonical Alert.
// Identity, URL, title, and description are required; a structurally absent
// field fails the whole record with MalformedRecordError. Active-period
// timestamps degrade independently to NullDate.
func (c *Canonicalizer) Canonicalize(e feed.Entity) (Alert, error) {
	if e.ID == "" {
		return Alert{}, &MalformedRecordError{EntityID: e.ID, Field: "id"}
	}
	if e.Alert == nil {
		return Alert{}, &MalformedRecordError{EntityID: e.ID, Field: "alert"}
	}

	url, err := firstTranslation(e.ID, "url", e.Alert.URL)
	if err != nil {
		return Alert{}, err
	}
	title, err := firstTranslation(e.ID, "headerText", e.Alert.HeaderText)
	if err != nil {
		return Alert{}, err
	}
	description, err := firstTranslation(e.ID, "descriptionText", e.Alert.DescriptionText)
	if err != nil {
		return Alert{}, err
	}

	return Alert{
		ID:          e.ID,
		URL:         url,
		Title:       title,
		Description: strings.ReplaceAll(description, "\n", ""),
		StartDate:   c.formatPeriodStart(e),
		EndDate:     c.formatPeriodEnd(e),
		Relevant:    RouteImpacted(e.Alert.InformedEntity, c.routeID),
	}, nil
}

// firstTranslation extracts the first translation's text, failing when the
// translation list is structurally absent or empty.
func firstTranslation(entityID, field string, t feed.Translated) (string, error) {
	if len(t.Translation) == 0 {
		return "", &MalformedRecordError{EntityID: entityID, Field: field}
	}
	return t.Translation[0].Text, nil
}

// formatPeriodStart renders the first active period's start timestamp.
func (c *Canonicalizer) formatPeriodStart(e feed.Entity) string {
	periods := e.Alert.ActivePeriod
	if len(periods) == 0 {
		return NullDate
	}
	return c.formatEpoch(e.ID, "start", periods[0].Start.String())
}

// formatPeriodEnd renders the last active period's end timestamp.
func (c *Canonicalizer) formatPeriodEnd(e feed.Entity) string {
	periods := e.Alert.ActivePeriod
	if len(periods) == 0 {
		return NullDate
	}
	return c.formatEpoch(e.ID, "end", periods[len(periods)-1].End.String())
}

// formatEpoch parses epoch seconds and formats them as a civil timestamp.
// Parse failure degrades to NullDate rather than failing the record.
func (c *Canonicalizer) formatEpoch(entityID, field, raw string) string {
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		slog.Debug("Active period timestamp unparseable, degrading to sentinel",
			"entity_id", entityID,
			"field", field,
			"value", raw,
		)
		return NullDate
	}
	return time.Unix(secs, 0).In(c.loc).Format(dateLayout)
}

// RouteImpacted reports whether any informed entity names the given route
// in either monitored direction (0 or 1). Other direction values do not
// count, and an empty list is simply not a match.
func RouteImpacted(entities []feed.InformedEntity, routeID string) bool {
	for _, ie := range entities {
		if ie.RouteID != routeID {
			continue
		}
		if ie.DirectionID == 0 || ie.DirectionID == 1 {
			return true
		}
	}
	return false
}
