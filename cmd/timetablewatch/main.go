package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jo12no/lightrail-sydney-alerts/internal/config"
	"github.com/jo12no/lightrail-sydney-alerts/internal/feed"
	"github.com/jo12no/lightrail-sydney-alerts/internal/mailer"
	"github.com/jo12no/lightrail-sydney-alerts/internal/mailer/provider"
	"github.com/jo12no/lightrail-sydney-alerts/internal/timetable"
)

func main() {
	cfg := &config.Config{}
	var profilePath string
	flag.StringVar(&cfg.DeparturesURL, "departures-url", "https://api.transport.nsw.gov.au/v1/tp/departure_mon?outputFormat=rapidJSON&departureMonitorMacro=true&TfNSWDM=true", "departure monitor URL")
	flag.StringVar(&cfg.StationID, "station-id", "220322", "stop identifier being watched")
	flag.StringVar(&cfg.Timezone, "timezone", "Australia/Sydney", "civil timezone of the departure time")
	flag.IntVar(&cfg.DepartureHour, "departure-hour", 7, "civil hour of the departure to verify")
	flag.IntVar(&cfg.DepartureMinute, "departure-minute", 50, "civil minute of the departure to verify")
	flag.StringVar(&cfg.EmailFrom, "email-from", "", "notification sender address")
	flag.StringVar(&cfg.EmailTo, "email-to", "", "notification recipients (comma-separated)")
	flag.StringVar(&cfg.EmailSubject, "email-subject", "Lightrail timetable alert", "notification subject line")
	flag.StringVar(&cfg.EmailProvider, "email-provider", "smtp", "primary email provider: smtp, ses, or resend")
	flag.StringVar(&profilePath, "profile", "", "optional YAML watch-profile file")
	flag.Parse()

	cfg.APIKey = config.GetEnvOrDefault("FEED_API_KEY", "")

	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "DEBUG" || os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	if profilePath != "" {
		if err := cfg.ApplyProfile(profilePath); err != nil {
			slog.Error("Failed to load watch profile", "error", err)
			os.Exit(1)
		}
	}

	if err := cfg.ValidateTimetable(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	loc, err := cfg.Location()
	if err != nil {
		slog.Error("Invalid timezone", "error", err)
		os.Exit(1)
	}

	invocation := flag.Arg(0)
	if invocation == "" {
		invocation = "Running locally."
	}

	client := feed.NewClient(feed.ClientConfig{
		DeparturesURL: cfg.DeparturesURL,
		APIKey:        cfg.APIKey,
		Timeout:       15 * time.Second,
	})

	notifier, err := mailer.New(mailer.Config{
		From:     cfg.EmailFrom,
		To:       cfg.EmailTo,
		Provider: cfg.EmailProvider,
		SMTP: provider.SMTPConfig{
			Host:     config.GetEnvOrDefault("SMTP_HOST", "smtp.office365.com"),
			Port:     config.GetEnvOrDefault("SMTP_PORT", "587"),
			User:     config.GetEnvOrDefault("SMTP_USER", cfg.EmailFrom),
			Password: config.GetEnvOrDefault("SMTP_PASSWORD", ""),
		},
		ResendAPIKey: config.GetEnvOrDefault("RESEND_API_KEY", ""),
		AWSRegion:    config.GetEnvOrDefault("AWS_REGION", ""),
	})
	if err != nil {
		slog.Error("Failed to configure mailer", "error", err)
		os.Exit(1)
	}

	checker := timetable.NewChecker(client, notifier, timetable.Config{
		StationID: cfg.StationID,
		Hour:      cfg.DepartureHour,
		Minute:    cfg.DepartureMinute,
		Location:  loc,
		Subject:   cfg.EmailSubject,
		AlertBody: fmt.Sprintf(
			"No %d:%02d departure found: https://transportnsw.info/trip#/departures?accessible=false&depart=%s&routes=780l1&type=stop",
			cfg.DepartureHour, cfg.DepartureMinute, cfg.StationID,
		),
	})

	res, err := checker.Run(context.Background(), invocation)
	if err != nil {
		slog.Error("Run aborted", "error", err)
		fmt.Printf("Error: %v (500)\n", err)
		os.Exit(1)
	}

	fmt.Printf("%s (%d)\n", res.Message, res.Code)
	if res.Code != 200 {
		os.Exit(1)
	}
}
