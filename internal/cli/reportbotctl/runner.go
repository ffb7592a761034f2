package reportbotctl

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
	Stdout     io.Writer
	Stderr     io.Writer
}

type askResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type validateResponse struct {
	Accepted bool `json:"accepted"`
}

// Run executes one command and returns the process exit code: 0 on success,
// 1 on request or pipeline failure, 2 on usage errors.
func Run(ctx context.Context, args []string, defaults Options) int {
	stdout := defaults.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}

	fs := flag.NewFlagSet("reportbotctl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	baseURL := fs.String("base-url", firstNonEmpty(defaults.BaseURL, "http://localhost:8080"), "reportbot API base URL")
	apiKey := fs.String("api-key", defaults.APIKey, "API key for authenticated requests")
	timeout := fs.Duration("timeout", durationOr(defaults.Timeout, 30*time.Second), "HTTP timeout (e.g. 30s)")
	raw := fs.Bool("json", false, "print the raw JSON response for ask")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		writeUsage(stderr)
		return 2
	}

	client := defaults.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: *timeout}
	}

	command := strings.TrimSpace(fs.Arg(0))
	text := strings.TrimSpace(strings.Join(fs.Args()[1:], " "))
	method := http.MethodGet
	path := ""
	var body any
	switch command {
	case "health":
		path = "/v1/health"
	case "ready":
		path = "/v1/ready"
	case "policy":
		path = "/v1/policy"
	case "ask":
		if text == "" {
			_, _ = fmt.Fprintln(stderr, "ask requires a question")
			return 2
		}
		method, path, body = http.MethodPost, "/v1/ask", map[string]string{"prompt": text}
	case "validate":
		if text == "" {
			_, _ = fmt.Fprintln(stderr, "validate requires a SQL statement")
			return 2
		}
		method, path, body = http.MethodPost, "/v1/sql/validate", map[string]string{"sql": text}
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n\n", command)
		writeUsage(stderr)
		return 2
	}

	endpoint := strings.TrimRight(*baseURL, "/") + path
	code, responseBody, err := doRequest(ctx, client, method, endpoint, *apiKey, body)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "request failed: %v\n", err)
		return 1
	}
	if code >= 400 {
		_, _ = fmt.Fprintf(stderr, "http %d: %s\n", code, strings.TrimSpace(string(responseBody)))
		return 1
	}

	switch {
	case command == "ask" && !*raw:
		var answer askResponse
		if err := json.Unmarshal(responseBody, &answer); err != nil {
			_, _ = fmt.Fprintf(stderr, "decode response: %v\n", err)
			return 1
		}
		_, _ = fmt.Fprintln(stdout, answer.Message)
		if answer.Kind == "failed" {
			return 1
		}
		return 0
	case command == "validate":
		writeBody(stdout, responseBody)
		var verdict validateResponse
		if err := json.Unmarshal(responseBody, &verdict); err != nil || !verdict.Accepted {
			return 1
		}
		return 0
	default:
		writeBody(stdout, responseBody)
		return 0
	}
}

func doRequest(ctx context.Context, client *http.Client, method, url, apiKey string, body any) (int, []byte, error) {
	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request body: %w", err)
		}
		payload = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, payload)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(apiKey) != "" {
		req.Header.Set("X-API-Key", strings.TrimSpace(apiKey))
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, responseBody, nil
}

func writeBody(w io.Writer, raw []byte) {
	if pretty, ok := prettyJSON(raw); ok {
		_, _ = fmt.Fprintln(w, pretty)
		return
	}
	if len(raw) > 0 {
		_, _ = fmt.Fprintln(w, string(raw))
	}
}

func prettyJSON(raw []byte) (string, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", false
	}
	var anyValue any
	if err := json.Unmarshal(raw, &anyValue); err != nil {
		return "", false
	}
	formatted, err := json.MarshalIndent(anyValue, "", "  ")
	if err != nil {
		return "", false
	}
	return string(formatted), true
}

func writeUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: reportbotctl [flags] <command> [args]")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "commands:")
	_, _ = fmt.Fprintln(w, "  health            GET /v1/health")
	_, _ = fmt.Fprintln(w, "  ready             GET /v1/ready")
	_, _ = fmt.Fprintln(w, "  policy            GET /v1/policy")
	_, _ = fmt.Fprintln(w, "  ask <text...>     POST /v1/ask")
	_, _ = fmt.Fprintln(w, "  validate <sql...> POST /v1/sql/validate")
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
