package assistant

import (
	"errors"
	"fmt"

	"github.com/reportbot/reportbot/internal/sqlguard"
)

// ReasonNoCandidate is reported when the model produced nothing usable.
const ReasonNoCandidate sqlguard.Reason = "no candidate produced"

// UpstreamError wraps a translator failure or an empty model answer.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string {
	if e.Err == nil {
		return string(ReasonNoCandidate)
	}
	return fmt.Sprintf("%s: %v", ReasonNoCandidate, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// ExecutionError wraps a database failure that happened after the statement
// was accepted.
type ExecutionError struct {
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execute statement: %v", e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

var rejectionMessages = map[sqlguard.Reason]string{
	sqlguard.ReasonNotSelect:          "Consulta não permitida: apenas consultas SELECT são aceitas.",
	sqlguard.ReasonForbiddenOperation: "Consulta não permitida: operação SQL proibida.",
	sqlguard.ReasonCommentNotAllowed:  "Consulta não permitida: comentários SQL não são aceitos.",
	sqlguard.ReasonUnauthorizedTable:  "Consulta não permitida: tabela não autorizada.",
	sqlguard.ReasonUnauthorizedColumn: "Consulta não permitida: coluna não autorizada.",
	sqlguard.ReasonUnsupportedShape:   "Consulta não permitida: formato de consulta não suportado.",
	ReasonNoCandidate:                 "Consulta não permitida: nenhuma consulta foi gerada.",
}

const (
	genericRejection = "Consulta não permitida."
	failureMessage   = "Erro ao processar a consulta."
)

// MessageFor maps a pipeline error onto the single reply the user sees. The
// text names the category only, never the statement.
func MessageFor(err error) Message {
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return Message{Kind: KindRejected, Reason: string(ReasonNoCandidate), Text: rejectionMessages[ReasonNoCandidate]}
	}
	if reason, ok := sqlguard.ReasonOf(err); ok {
		text, known := rejectionMessages[reason]
		if !known {
			text = genericRejection
		}
		return Message{Kind: KindRejected, Reason: string(reason), Text: text}
	}
	return Message{Kind: KindFailed, Text: failureMessage}
}
