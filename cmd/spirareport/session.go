package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"spirareport/internal/config"
	"spirareport/internal/notify"
	"spirareport/internal/reporter"
	"spirareport/internal/spira"
	"spirareport/internal/telemetry"
	"spirareport/internal/ui"
)

var errIncomplete = errors.New("spira url, username, token and projectId are required to record test runs")

// newNotifier can be replaced in tests.
var newNotifier = func(token, channel string) (*notify.SlackNotifier, error) {
	return notify.NewSlackNotifier(token, channel)
}

// session is one reporting pass: a reporter plus what happens after its flush.
type session struct {
	app      *app
	creds    *config.Credentials
	credErr  error
	reporter *reporter.Reporter
	metrics  *telemetry.Metrics
	server   *http.Server
}

func (a *app) newSession(stderr io.Writer) *session {
	creds, credErr := config.NewCredentials(a.file.Settings, a.logger)
	if credErr != nil {
		fmt.Fprintln(stderr, ui.RenderProblems(credErr))
	}

	rep := reporter.New(creds, nil, a.logger)
	if client, err := a.newClient(creds); err == nil {
		rep.Client = client
	} else {
		a.logger.Warn("Test runs will not be recorded", "error", err)
	}

	s := &session{
		app:      a,
		creds:    creds,
		credErr:  credErr,
		reporter: rep,
		metrics:  telemetry.NewMetrics(),
	}
	rep.Metrics = s.metrics
	rep.MaxConcurrency = a.file.MaxConcurrency
	return s
}

func (a *app) newClient(creds *config.Credentials) (*spira.Client, error) {
	if creds.URL == "" || creds.Username == "" || creds.Token == "" || creds.ProjectID == 0 {
		return nil, errIncomplete
	}
	client, err := spira.NewClient(creds.URL, creds.Username, creds.Token)
	if err != nil {
		return nil, err
	}
	client.HTTPClient.Timeout = a.file.Timeout
	return client, nil
}

// serveMetrics exposes the session's metrics on addr until finish is called.
func (s *session) serveMetrics(addr string) error {
	if addr == "" {
		return nil
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen for metrics on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", s.metrics.Handler())
	s.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.app.logger.Error("Metrics server failed", "error", err)
		}
	}()
	s.app.logger.Info("Serving metrics", "addr", ln.Addr().String())
	return nil
}

// finish prints the flush summary and runs the optional metrics push and Slack post.
// Their failures are logged only.
func (s *session) finish(ctx context.Context, stderr io.Writer, summary reporter.Summary, flushErr error) {
	fmt.Fprintln(stderr, ui.RenderSummary(summary, flushErr))

	opts := s.app.file.Options
	if opts.Metrics.Pushgateway != "" {
		if err := s.metrics.Push(ctx, opts.Metrics.Pushgateway, opts.Metrics.Job); err != nil {
			s.app.logger.Error("Failed to push metrics", "error", err)
		}
	}

	if opts.Notifications.Slack.Enabled {
		s.notifySlack(ctx, summary, flushErr)
	}

	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
}

func (s *session) notifySlack(ctx context.Context, summary reporter.Summary, flushErr error) {
	token := os.Getenv(notify.TokenEnv)
	if token == "" {
		s.app.logger.Warn("Slack notifications enabled but token is not set", "env", notify.TokenEnv)
		return
	}

	n, err := newNotifier(token, s.app.file.Notifications.Slack.Channel)
	if err != nil {
		s.app.logger.Error("Failed to create Slack notifier", "error", err)
		return
	}
	if _, err := n.NotifySummary(ctx, s.creds.ProjectID, summary, flushErr); err != nil {
		s.app.logger.Error("Failed to send Slack summary", "error", err)
	}
}

// result decides the command outcome from the reporting side alone.
func (s *session) result(strict bool, flushErr error) error {
	if !strict {
		return nil
	}
	if s.credErr != nil {
		return &exitError{code: 1, err: s.credErr}
	}
	if flushErr != nil {
		return &exitError{code: 1, err: flushErr}
	}
	return nil
}
