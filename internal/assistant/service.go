// Package assistant runs one natural-language request through translation,
// validation, bounded execution and formatting, and produces exactly one
// reply.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/reportbot/reportbot/internal/nl2sql"
	"github.com/reportbot/reportbot/internal/observability"
	"github.com/reportbot/reportbot/internal/query"
	"github.com/reportbot/reportbot/internal/render"
	"github.com/reportbot/reportbot/internal/sqlguard"
)

type Kind string

const (
	KindResult   Kind = "result"
	KindRejected Kind = "rejected"
	KindFailed   Kind = "failed"
)

type Message struct {
	Kind      Kind
	Text      string
	Reason    string
	SQL       string
	RowCount  int
	Truncated bool
}

type Options struct {
	RowLimit    int
	PreviewRows int
	MaxChars    int
	Logger      *slog.Logger
}

type Service struct {
	translator  nl2sql.Translator
	engine      query.Engine
	policy      sqlguard.Policy
	rowLimit    int
	previewRows int
	maxChars    int
	logger      *slog.Logger
}

func NewService(translator nl2sql.Translator, engine query.Engine, policy sqlguard.Policy, opts Options) (*Service, error) {
	if translator == nil {
		return nil, fmt.Errorf("translator is required")
	}
	if engine == nil {
		return nil, fmt.Errorf("query engine is required")
	}
	if len(policy.Tables()) == 0 {
		return nil, fmt.Errorf("policy is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		translator:  translator,
		engine:      engine,
		policy:      policy,
		rowLimit:    query.EffectiveRowLimit(opts.RowLimit),
		previewRows: positiveOr(opts.PreviewRows, render.DefaultPreviewRows),
		maxChars:    positiveOr(opts.MaxChars, render.DefaultMaxChars),
		logger:      logger,
	}, nil
}

func (s *Service) Policy() sqlguard.Policy {
	return s.policy
}

// Handle never returns an error: every failure becomes a rejected or failed
// message.
func (s *Service) Handle(ctx context.Context, userText string) Message {
	message, err := s.run(ctx, userText)
	if err != nil {
		message = MessageFor(err)
		s.logFailure(ctx, err)
	}
	observability.ObservePipelineOutcome(string(message.Kind))
	return message
}

func (s *Service) run(ctx context.Context, userText string) (Message, error) {
	table := s.policy.Tables()[0]
	translated, err := s.translator.Translate(ctx, nl2sql.Request{
		NaturalLanguage: strings.TrimSpace(userText),
		Table:           table,
		Columns:         s.policy.Columns(),
	})
	if err != nil {
		return Message{}, &UpstreamError{Err: err}
	}
	if strings.TrimSpace(translated.SQL) == "" {
		return Message{}, &UpstreamError{Err: errors.New("model returned empty text")}
	}
	s.logger.DebugContext(ctx, "candidate_statement",
		slog.String("trace_id", observability.TraceIDFromContext(ctx)),
		slog.String("model", translated.Model),
		slog.String("sql", translated.SQL),
	)

	return s.execute(ctx, translated.SQL)
}

// execute runs the candidate through the bounded engine only after the guard
// has accepted it.
func (s *Service) execute(ctx context.Context, candidate string) (Message, error) {
	statement, err := sqlguard.Validate(candidate, s.policy)
	if err != nil {
		return Message{}, err
	}
	s.logger.InfoContext(ctx, "statement_accepted",
		slog.String("trace_id", observability.TraceIDFromContext(ctx)),
		slog.Any("tables", statement.References.Tables),
		slog.Any("columns", statement.References.Columns),
	)

	result, err := s.engine.Execute(ctx, query.Request{SQL: statement.SQL, RowLimit: s.rowLimit})
	if err != nil {
		return Message{}, &ExecutionError{Err: err}
	}
	observability.ObserveQuery(len(result.Rows), result.Duration)
	s.logger.InfoContext(ctx, "statement_executed",
		slog.String("trace_id", observability.TraceIDFromContext(ctx)),
		slog.Int("rows", len(result.Rows)),
		slog.Bool("truncated", result.Truncated),
		slog.String("duration", result.Duration.String()),
	)

	return Message{
		Kind:      KindResult,
		Text:      render.Format(result, s.previewRows, s.maxChars),
		SQL:       statement.SQL,
		RowCount:  len(result.Rows),
		Truncated: result.Truncated,
	}, nil
}

func (s *Service) logFailure(ctx context.Context, err error) {
	traceID := slog.String("trace_id", observability.TraceIDFromContext(ctx))
	var rejected *sqlguard.RejectedError
	var upstream *UpstreamError
	switch {
	case errors.As(err, &rejected):
		observability.ObserveRejection(string(rejected.Reason))
		s.logger.WarnContext(ctx, "statement_rejected", traceID,
			slog.String("reason", string(rejected.Reason)),
			slog.String("identifier", rejected.Identifier),
		)
	case errors.As(err, &upstream):
		observability.ObserveRejection(string(ReasonNoCandidate))
		s.logger.WarnContext(ctx, "translation_failed", traceID, slog.String("error", err.Error()))
	default:
		s.logger.ErrorContext(ctx, "statement_execution_failed", traceID, slog.String("error", err.Error()))
	}
}

func positiveOr(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}
