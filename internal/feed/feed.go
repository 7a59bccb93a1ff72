// Package feed provides the upstream transit feed contract and the HTTP
// client used to fetch it.
package feed

import "encoding/json"

// Document is the top-level shape of the service-alert feed.
type Document struct {
	Entities []Entity `json:"entity"`
}

// Entity is one raw feed record. The nested shape is schema-variable
// upstream; fields the canonicalizer requires are validated there, not here.
type Entity struct {
	ID    string `json:"id"`
	Alert *Body  `json:"alert"`
}

// Body holds the alert payload of an entity.
type Body struct {
	URL             Translated       `json:"url"`
	HeaderText      Translated       `json:"headerText"`
	DescriptionText Translated       `json:"descriptionText"`
	ActivePeriod    []Period         `json:"activePeriod"`
	InformedEntity  []InformedEntity `json:"informedEntity"`
}

// Translated is a translation-style sub-structure; the first entry's text
// is the one consumed.
type Translated struct {
	Translation []Translation `json:"translation"`
}

// Translation is a single language variant of a text field.
type Translation struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// Period is an active period with epoch-second bounds. The upstream feed
// delivers these sometimes as JSON numbers and sometimes as strings, so
// json.Number covers both.
type Period struct {
	Start json.Number `json:"start"`
	End   json.Number `json:"end"`
}

// InformedEntity identifies one route/direction pair impacted by an alert.
type InformedEntity struct {
	RouteID     string `json:"routeId"`
	DirectionID int    `json:"directionId"`
}

// DepartureDocument is the top-level shape of the departure monitor feed.
type DepartureDocument struct {
	StopEvents []StopEvent `json:"stopEvents"`
}

// StopEvent is one planned departure from the monitored stop.
type StopEvent struct {
	DepartureTimePlanned string `json:"departureTimePlanned"`
}
