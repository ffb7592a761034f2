package nl2sql

import "context"

// Request carries the user's instruction together with the only table and
// columns the model may reference.
type Request struct {
	NaturalLanguage string   `json:"natural_language"`
	Table           string   `json:"table"`
	Columns         []string `json:"columns"`
}

// Result.SQL is untrusted model output and must be validated before use.
type Result struct {
	SQL      string `json:"sql"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

type Translator interface {
	Translate(ctx context.Context, req Request) (Result, error)
}
