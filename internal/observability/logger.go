package observability

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/reportbot/reportbot/internal/config"
)

type ctxKey string

const (
	traceIDKey ctxKey = "trace_id"
	redacted          = "[redacted]"
)

// NewLogger builds the service logger. Configured credentials (webhook URL,
// model API key, object store secret, database password, static API keys)
// are masked wherever they appear in a message or a string attribute, which
// covers transport errors that echo the request URL.
func NewLogger(cfg config.Config, writer io.Writer) *slog.Logger {
	if writer == nil {
		writer = io.Discard
	}
	options := &slog.HandlerOptions{Level: cfg.Observability.LogLevel}
	var handler slog.Handler
	if cfg.Observability.LogJSON {
		handler = slog.NewJSONHandler(writer, options)
	} else {
		handler = slog.NewTextHandler(writer, options)
	}
	if secrets := configuredSecrets(cfg); len(secrets) > 0 {
		handler = &redactHandler{next: handler, replacer: newSecretReplacer(secrets)}
	}
	return slog.New(handler).With(
		slog.String("service", cfg.Service.Name),
		slog.String("profile", string(cfg.Profile)),
	)
}

func ContextWithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

func TraceIDFromContext(ctx context.Context) string {
	value, ok := ctx.Value(traceIDKey).(string)
	if !ok {
		return ""
	}
	return value
}

func configuredSecrets(cfg config.Config) []string {
	candidates := []string{
		cfg.Notify.WebhookURL,
		cfg.AI.APIKey,
		cfg.ObjectStore.SecretAccessKey,
	}
	if parsed, err := url.Parse(cfg.Database.DSN); err == nil && parsed.User != nil {
		if password, ok := parsed.User.Password(); ok {
			candidates = append(candidates, password)
		}
	}
	for _, entry := range strings.Split(cfg.Auth.StaticKeys, ",") {
		key, _, _ := strings.Cut(entry, ":")
		candidates = append(candidates, key)
	}

	var secrets []string
	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		// Very short values would mask ordinary words.
		if len(candidate) < 6 {
			continue
		}
		secrets = append(secrets, candidate)
	}
	return secrets
}

func newSecretReplacer(secrets []string) *strings.Replacer {
	pairs := make([]string, 0, 2*len(secrets))
	for _, secret := range secrets {
		pairs = append(pairs, secret, redacted)
	}
	return strings.NewReplacer(pairs...)
}

type redactHandler struct {
	next     slog.Handler
	replacer *strings.Replacer
}

func (h *redactHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *redactHandler) Handle(ctx context.Context, record slog.Record) error {
	clean := slog.NewRecord(record.Time, record.Level, h.replacer.Replace(record.Message), record.PC)
	record.Attrs(func(attr slog.Attr) bool {
		clean.AddAttrs(h.scrub(attr))
		return true
	})
	return h.next.Handle(ctx, clean)
}

func (h *redactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	scrubbed := make([]slog.Attr, len(attrs))
	for i, attr := range attrs {
		scrubbed[i] = h.scrub(attr)
	}
	return &redactHandler{next: h.next.WithAttrs(scrubbed), replacer: h.replacer}
}

func (h *redactHandler) WithGroup(name string) slog.Handler {
	return &redactHandler{next: h.next.WithGroup(name), replacer: h.replacer}
}

func (h *redactHandler) scrub(attr slog.Attr) slog.Attr {
	value := attr.Value.Resolve()
	switch value.Kind() {
	case slog.KindString:
		return slog.String(attr.Key, h.replacer.Replace(value.String()))
	case slog.KindGroup:
		group := value.Group()
		scrubbed := make([]any, len(group))
		for i, member := range group {
			scrubbed[i] = h.scrub(member)
		}
		return slog.Group(attr.Key, scrubbed...)
	case slog.KindAny:
		if err, ok := value.Any().(error); ok {
			return slog.String(attr.Key, h.replacer.Replace(err.Error()))
		}
	}
	return slog.Attr{Key: attr.Key, Value: value}
}
