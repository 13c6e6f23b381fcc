package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EventType represents the type of audit event
type EventType string

const (
	EventSignInSuccess       EventType = "sign_in_success"
	EventSignInFailed        EventType = "sign_in_failed"
	EventLoginBlocked        EventType = "login_blocked"
	EventSignUp              EventType = "sign_up"
	EventOAuthCallbackFailed EventType = "oauth_callback_failed"
	EventRateLimitTriggered  EventType = "rate_limit_triggered"
	EventRouteRedirect       EventType = "route_redirect"
	EventReferralFailed      EventType = "referral_failed"
	EventOnboardingCompleted EventType = "onboarding_completed"
	EventUsernameChanged     EventType = "username_changed"
	EventRegistrationApprove EventType = "registration_approved"
	EventDataExport          EventType = "data_export"
	EventAPIKeySaved         EventType = "api_key_saved"
	EventAPIKeyDeleted       EventType = "api_key_deleted"
)

// Event is one audit record. SubjectValue must already be masked or hashed.
type Event struct {
	Timestamp    time.Time
	Event        EventType
	SubjectType  string // "email", "ip", "user_id"
	SubjectValue string
	IP           string
	RequestID    string
	Details      map[string]interface{}
}

// Logger writes audit events as structured zap entries.
type Logger struct {
	zapLogger   *zap.Logger
	serviceName string
	environment string
}

// New builds a production zap logger writing JSON to stdout.
func New(serviceName, environment string) *Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.MessageKey = "message"
	config.OutputPaths = []string{"stdout"}
	config.ErrorOutputPaths = []string{"stderr"}

	logger, err := config.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		logger, _ = zap.NewProduction()
	}

	return &Logger{
		zapLogger:   logger,
		serviceName: serviceName,
		environment: environment,
	}
}

// NewWithZap wraps an existing zap logger (tests use zaptest/observer).
func NewWithZap(z *zap.Logger, serviceName, environment string) *Logger {
	return &Logger{zapLogger: z, serviceName: serviceName, environment: environment}
}

// NewNop discards everything.
func NewNop() *Logger {
	return &Logger{zapLogger: zap.NewNop()}
}

func (l *Logger) Log(_ context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	level := zapcore.InfoLevel
	switch event.Event {
	case EventSignInFailed, EventRateLimitTriggered, EventOAuthCallbackFailed:
		level = zapcore.WarnLevel
	case EventReferralFailed, EventLoginBlocked:
		level = zapcore.ErrorLevel
	}

	fields := []zap.Field{
		zap.String("service", l.serviceName),
		zap.String("env", l.environment),
		zap.String("event", string(event.Event)),
		zap.Time("event_time", event.Timestamp),
	}
	if event.SubjectType != "" {
		fields = append(fields, zap.String("subject_type", event.SubjectType))
	}
	if event.SubjectValue != "" {
		fields = append(fields, zap.String("subject_value", event.SubjectValue))
	}
	if event.IP != "" {
		fields = append(fields, zap.String("ip", event.IP))
	}
	if event.RequestID != "" {
		fields = append(fields, zap.String("request_id", event.RequestID))
	}
	if len(event.Details) > 0 {
		fields = append(fields, zap.Any("details", event.Details))
	}

	l.zapLogger.Log(level, string(event.Event), fields...)
}

// SignInFailed logs a rejected password sign-in
func (l *Logger) SignInFailed(ctx context.Context, email, ip, requestID, reason string) {
	l.Log(ctx, Event{
		Event:        EventSignInFailed,
		SubjectType:  "email",
		SubjectValue: MaskEmail(email),
		IP:           ip,
		RequestID:    requestID,
		Details:      map[string]interface{}{"reason": reason},
	})
}

// LoginBlocked logs a sign-in lockout
func (l *Logger) LoginBlocked(ctx context.Context, email, ip, requestID string, duration time.Duration) {
	l.Log(ctx, Event{
		Event:        EventLoginBlocked,
		SubjectType:  "email",
		SubjectValue: MaskEmail(email),
		IP:           ip,
		RequestID:    requestID,
		Details:      map[string]interface{}{"duration_minutes": int(duration.Minutes())},
	})
}

// RateLimitTriggered logs when rate limiting is triggered
func (l *Logger) RateLimitTriggered(ctx context.Context, ip, requestID, scope string) {
	l.Log(ctx, Event{
		Event:        EventRateLimitTriggered,
		SubjectType:  "ip",
		SubjectValue: ip,
		IP:           ip,
		RequestID:    requestID,
		Details:      map[string]interface{}{"scope": scope},
	})
}

// ReferralFailed records a swallowed referral attribution failure.
func (l *Logger) ReferralFailed(ctx context.Context, referrer, referred string, err error) {
	l.Log(ctx, Event{
		Event:        EventReferralFailed,
		SubjectType:  "email",
		SubjectValue: HashValue(strings.ToLower(referred)),
		Details: map[string]interface{}{
			"referrer": HashValue(strings.ToLower(referrer)),
			"error":    err.Error(),
		},
	})
}

// Sync flushes any buffered log entries
func (l *Logger) Sync() error {
	return l.zapLogger.Sync()
}

// MaskEmail masks an email for logging (e.g., "j***@example.com")
func MaskEmail(email string) string {
	at := strings.IndexByte(email, '@')
	if len(email) < 3 || at < 0 {
		return "***"
	}
	if at <= 1 {
		return "***" + email[at:]
	}
	return email[:1] + "***" + email[at:]
}

// HashValue creates a short SHA256 digest (for logging without PII)
func HashValue(value string) string {
	hash := sha256.Sum256([]byte(value))
	return hex.EncodeToString(hash[:8])
}
