// Package config provides configuration parsing and validation for the
// watch jobs. Infrastructure settings come from flags and environment
// variables; the watch targets can additionally be loaded from a YAML
// profile file so tests and deployments can swap them without rebuilding.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration parameters for the alert-watch job.
type Config struct {
	// Upstream feed
	AlertsURL     string
	DeparturesURL string
	APIKey        string

	// Watch targets
	RouteID   string
	StationID string
	Timezone  string

	// Departure being verified by the timetable job
	DepartureHour   int
	DepartureMinute int

	// Durable store
	StoreDriver string
	StoreDSN    string

	// Notification
	EmailFrom     string
	EmailTo       string
	EmailSubject  string
	EmailProvider string

	// Optional cross-run lock
	RedisAddr string
	LockTTL   time.Duration
}

// Profile is the YAML watch-profile file shape. Only watch targets and
// notification addressing live here; secrets stay in the environment.
type Profile struct {
	RouteID         string `yaml:"route_id"`
	StationID       string `yaml:"station_id"`
	Timezone        string `yaml:"timezone"`
	DepartureHour   int    `yaml:"departure_hour"`
	DepartureMinute int    `yaml:"departure_minute"`
	EmailFrom       string `yaml:"email_from"`
	EmailTo         string `yaml:"email_to"`
	EmailSubject    string `yaml:"email_subject"`
}

// Validate checks that all required configuration fields are set and have
// valid values. Returns an error if validation fails, nil otherwise.
func (c *Config) Validate() error {
	if c.AlertsURL == "" {
		return fmt.Errorf("feed-url cannot be empty")
	}
	if c.APIKey == "" {
		return fmt.Errorf("api key cannot be empty (set FEED_API_KEY)")
	}
	if c.RouteID == "" {
		return fmt.Errorf("route-id cannot be empty")
	}
	if c.StoreDSN == "" {
		return fmt.Errorf("store-dsn cannot be empty")
	}
	if c.EmailFrom == "" {
		return fmt.Errorf("email-from cannot be empty")
	}
	if c.EmailTo == "" {
		return fmt.Errorf("email-to cannot be empty")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return nil
}

// ValidateTimetable checks the fields the timetable job requires.
func (c *Config) ValidateTimetable() error {
	if c.DeparturesURL == "" {
		return fmt.Errorf("departures-url cannot be empty")
	}
	if c.APIKey == "" {
		return fmt.Errorf("api key cannot be empty (set FEED_API_KEY)")
	}
	if c.StationID == "" {
		return fmt.Errorf("station-id cannot be empty")
	}
	if c.DepartureHour < 0 || c.DepartureHour > 23 {
		return fmt.Errorf("departure-hour must be between 0 and 23")
	}
	if c.DepartureMinute < 0 || c.DepartureMinute > 59 {
		return fmt.Errorf("departure-minute must be between 0 and 59")
	}
	if c.EmailFrom == "" {
		return fmt.Errorf("email-from cannot be empty")
	}
	if c.EmailTo == "" {
		return fmt.Errorf("email-to cannot be empty")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return nil
}

// ApplyProfile loads a YAML watch profile and overlays its non-empty
// fields onto the config.
func (c *Config) ApplyProfile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading profile %s: %w", path, err)
	}
	var p Profile
	if err := yaml.Unmarshal(b, &p); err != nil {
		return fmt.Errorf("parsing profile %s: %w", path, err)
	}

	if p.RouteID != "" {
		c.RouteID = p.RouteID
	}
	if p.StationID != "" {
		c.StationID = p.StationID
	}
	if p.Timezone != "" {
		c.Timezone = p.Timezone
	}
	if p.DepartureHour != 0 {
		c.DepartureHour = p.DepartureHour
	}
	if p.DepartureMinute != 0 {
		c.DepartureMinute = p.DepartureMinute
	}
	if p.EmailFrom != "" {
		c.EmailFrom = p.EmailFrom
	}
	if p.EmailTo != "" {
		c.EmailTo = p.EmailTo
	}
	if p.EmailSubject != "" {
		c.EmailSubject = p.EmailSubject
	}
	return nil
}

// Location resolves the configured civil timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// GetEnvOrDefault returns the environment variable value or a default if
// not set.
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
