package alerter

import (
	"context"
	"strings"
	"time"

	"github.com/jwalitptl/reminder-engine/internal/email"
	"github.com/jwalitptl/reminder-engine/internal/model"
	"github.com/jwalitptl/reminder-engine/internal/notify"
	"github.com/jwalitptl/reminder-engine/internal/repository"
	"github.com/jwalitptl/reminder-engine/pkg/logger"
	"github.com/jwalitptl/reminder-engine/pkg/metrics"
)

// catastrophicPatterns mark failures that will not self-resolve.
var catastrophicPatterns = []string{"not found", "corrupt", "permission", "quota"}

type Service interface {
	// Alert surfaces an internal failure as a user-visible notification,
	// rate-limited, with unconditional durable logging. Never returns an
	// error: a failing alert path must not take its caller down with it.
	Alert(ctx context.Context, category model.ErrorCategory, err error, message string)
}

type Config struct {
	Window time.Duration // rate-limit window, default 5m
	Limit  int           // max user-facing alerts per window, default 3
	// NotifyEmail, when set, receives a copy of catastrophic alerts.
	NotifyEmail string
}

func DefaultConfig() Config {
	return Config{Window: 5 * time.Minute, Limit: 3}
}

type service struct {
	gateway  notify.Gateway
	errorLog repository.ErrorLogRepository
	ledger   Ledger
	emailSvc email.Service
	config   Config
	logger   *logger.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewService(
	gateway notify.Gateway,
	errorLog repository.ErrorLogRepository,
	ledger Ledger,
	emailSvc email.Service,
	config Config,
	log *logger.Logger,
	m *metrics.Metrics,
) Service {
	if ledger == nil {
		ledger = NewSlidingWindow(config.Window, config.Limit)
	}
	return &service{
		gateway:  gateway,
		errorLog: errorLog,
		ledger:   ledger,
		emailSvc: emailSvc,
		config:   config,
		logger:   log,
		metrics:  m,
		now:      time.Now,
	}
}

func (s *service) Alert(ctx context.Context, category model.ErrorCategory, err error, message string) {
	severity := Classify(category, err)
	resolved := resolveMessage(severity, category, message)

	detail := ""
	if err != nil {
		detail = err.Error()
	}

	// Diagnostic logging happens unconditionally, before any rate-limit
	// decision: no failure is ever dropped from observability.
	if severity == model.SeverityCatastrophic {
		s.logger.Error(err, "catastrophic failure surfaced to alerter",
			"category", string(category), "message", resolved)
	} else {
		s.logger.Warn("transient failure surfaced to alerter",
			"category", string(category), "message", resolved, "detail", detail)
	}
	s.metrics.AlertsRaised.WithLabelValues(string(severity)).Inc()

	admitted := s.ledger.Admit(s.now())

	entry := &model.ErrorLogEntry{
		Category:   category,
		Severity:   severity,
		Message:    resolved,
		Detail:     detail,
		Notified:   admitted,
		OccurredAt: s.now(),
	}
	if logErr := s.errorLog.Create(ctx, entry); logErr != nil {
		// Best effort only: the durable log failing must not raise.
		s.logger.Error(logErr, "failed to write durable error log entry")
	}

	if !admitted {
		s.metrics.AlertsRateLimited.Inc()
		s.logger.Warn("alert suppressed by rate limiter",
			"category", string(category), "severity", string(severity))
		return
	}

	s.notify(ctx, severity, resolved)

	if severity == model.SeverityCatastrophic && s.config.NotifyEmail != "" && s.emailSvc != nil {
		if mailErr := s.emailSvc.SendAlert(ctx, s.config.NotifyEmail, "Reminder engine needs attention", resolved); mailErr != nil {
			s.logger.Warn("failed to send alert email", "error", mailErr.Error())
		}
	}
}

// notify schedules an immediate notification. A failure here is caught
// and logged, never re-raised to the caller.
func (s *service) notify(ctx context.Context, severity model.ErrorSeverity, message string) {
	pri := model.PriorityDefault
	title := "Reminder issue"
	if severity == model.SeverityCatastrophic {
		pri = model.PriorityCritical
		title = "Reminders need attention"
	}

	req := &model.NotificationRequest{
		Title:     title,
		Body:      message,
		Category:  model.CategoryEngineAlert,
		Priority:  pri,
		TriggerAt: s.now(),
	}
	if _, err := s.gateway.Schedule(ctx, req); err != nil {
		s.logger.Error(err, "failed to schedule alert notification",
			"severity", string(severity))
	}
}

// Classify derives severity from the error category and message text.
// Network errors always classify as transient; unclassifiable cases
// default to transient so the user is not alarmed unnecessarily.
func Classify(category model.ErrorCategory, err error) model.ErrorSeverity {
	if category == model.CategoryNetwork {
		return model.SeverityTransient
	}
	if err == nil {
		return model.SeverityTransient
	}

	text := strings.ToLower(err.Error())
	for _, pattern := range catastrophicPatterns {
		if strings.Contains(text, pattern) {
			return model.SeverityCatastrophic
		}
	}
	return model.SeverityTransient
}

func resolveMessage(severity model.ErrorSeverity, category model.ErrorCategory, custom string) string {
	if custom != "" {
		return custom
	}
	if severity == model.SeverityCatastrophic {
		switch category {
		case model.CategoryData:
			return "Some reminder data looks inconsistent. Please review your reminder settings."
		default:
			return "Reminders hit a problem that needs your attention."
		}
	}
	return "A temporary issue occurred. Your reminders will continue working."
}
