// Package extract recovers a structured execution result from the raw
// combined output of a function container. Well-behaved wrappers print a
// single marked result line; everything else is handled by a fixed ladder of
// fallback strategies so that a garbled stream still reduces to an HTTP-shaped
// result instead of an exception.
package extract

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const (
	// ResultMarker precedes the wrapper's result line. This is the primary
	// contract: exactly one line "FINAL_RESULT: <json>" on stdout.
	ResultMarker = "FINAL_RESULT: "

	// CompletionMarker is printed by wrappers when the function returns,
	// followed by the process exit status.
	CompletionMarker = "=== FUNCTION WRAPPER COMPLETED WITH STATUS:"

	zeroExitMarker = CompletionMarker + " 0"

	// ExcerptLimit bounds how much raw log is surfaced in error results.
	ExcerptLimit = 500
)

// dependencyErrorPatterns identify a function that crashed before running
// because a runtime dependency is missing. Any hit short-circuits parsing.
var dependencyErrorPatterns = []string{
	"ModuleNotFoundError",
	"ImportError: No module named",
	"ClassNotFoundException",
	"Could not load file or assembly",
	"Uncaught Error: Class",
}

// Result is the canonical outcome of one invocation. Headers is never nil.
type Result struct {
	StatusCode int               `json:"statusCode"`
	Headers    map[string]string `json:"headers"`
	Body       any               `json:"body"`
}

type strategy struct {
	name string
	fn   func(logText string) (*Result, bool)
}

// strategies are tried in order; the first success wins.
var strategies = []strategy{
	{"result_marker", fromResultMarker},
	{"completion_marker", fromCompletionMarker},
	{"whole_log", fromWholeLog},
	{"brace_span", fromBraceSpan},
}

// Extract reduces a container's combined output to a Result. It never fails:
// output that defeats every strategy becomes a 500 carrying a log excerpt.
func Extract(logText string) *Result {
	result, _ := ExtractWithStrategy(logText)
	return result
}

// ExtractWithStrategy is Extract plus the name of the strategy that produced
// the result, for logging.
func ExtractWithStrategy(logText string) (*Result, string) {
	if line, ok := dependencyErrorLine(logText); ok {
		return dependencyFailure(line, logText), "dependency_error"
	}

	for _, s := range strategies {
		if result, ok := s.fn(logText); ok {
			return result, s.name
		}
	}

	if strings.Contains(logText, zeroExitMarker) {
		return &Result{
			StatusCode: 200,
			Headers:    map[string]string{},
			Body:       map[string]any{"message": "Function completed successfully"},
		}, "zero_exit"
	}

	return Failure("Function produced no valid JSON response", logText), "none"
}

// Failure builds the 500 Result used for timeouts, start failures and
// exhausted parsing, carrying a bounded excerpt of the raw log.
func Failure(message, logText string) *Result {
	body := map[string]any{"error": message}
	if logText != "" {
		body["logs"] = Excerpt(logText)
	}
	return &Result{
		StatusCode: 500,
		Headers:    map[string]string{},
		Body:       body,
	}
}

// Excerpt truncates raw log output for inclusion in an error result.
func Excerpt(logText string) string {
	if len(logText) <= ExcerptLimit {
		return logText
	}
	return logText[:ExcerptLimit]
}

// fromResultMarker parses the JSON after the last ResultMarker, up to the end
// of that line.
func fromResultMarker(logText string) (*Result, bool) {
	idx := strings.LastIndex(logText, ResultMarker)
	if idx < 0 {
		return nil, false
	}
	rest := logText[idx+len(ResultMarker):]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[:nl]
	}
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return nil, false
	}

	var v any
	if err := json.Unmarshal([]byte(rest), &v); err != nil {
		return nil, false
	}
	return normalize(v), true
}

// fromCompletionMarker scans backward from the completion marker to the last
// "{" and parses one balanced JSON value from there.
func fromCompletionMarker(logText string) (*Result, bool) {
	idx := strings.LastIndex(logText, CompletionMarker)
	if idx < 0 {
		return nil, false
	}
	brace := strings.LastIndexByte(logText[:idx], '{')
	if brace < 0 {
		return nil, false
	}

	dec := json.NewDecoder(strings.NewReader(logText[brace:]))
	var v map[string]any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	return normalize(v), true
}

// fromWholeLog parses the entire trimmed log as one JSON object.
func fromWholeLog(logText string) (*Result, bool) {
	trimmed := strings.TrimSpace(logText)
	if trimmed == "" || trimmed[0] != '{' {
		return nil, false
	}
	var v map[string]any
	if err := json.Unmarshal([]byte(trimmed), &v); err != nil {
		return nil, false
	}
	return normalize(v), true
}

// fromBraceSpan parses the substring between the first "{" and the last "}".
func fromBraceSpan(logText string) (*Result, bool) {
	first := strings.IndexByte(logText, '{')
	last := strings.LastIndexByte(logText, '}')
	if first < 0 || last <= first {
		return nil, false
	}
	var v map[string]any
	if err := json.Unmarshal([]byte(logText[first:last+1]), &v); err != nil {
		return nil, false
	}
	return normalize(v), true
}

// normalize shapes a parsed JSON value into a Result. A map carrying any of
// the envelope keys is treated as the envelope itself; any other value
// becomes the body of a 200.
func normalize(v any) *Result {
	result := &Result{
		StatusCode: 200,
		Headers:    map[string]string{},
	}

	obj, ok := v.(map[string]any)
	if !ok {
		result.Body = v
		return result
	}

	_, hasStatus := obj["statusCode"]
	_, hasBody := obj["body"]
	_, hasHeaders := obj["headers"]
	if !hasStatus && !hasBody && !hasHeaders {
		result.Body = obj
		return result
	}

	if hasStatus {
		switch n := obj["statusCode"].(type) {
		case float64:
			result.StatusCode = int(n)
		case string:
			if i, err := strconv.Atoi(n); err == nil {
				result.StatusCode = i
			}
		}
	}

	if h, ok := obj["headers"].(map[string]any); ok {
		for key, value := range h {
			if s, ok := value.(string); ok {
				result.Headers[key] = s
			} else {
				result.Headers[key] = fmt.Sprint(value)
			}
		}
	}

	result.Body = unwrapBody(obj["body"])
	return result
}

// unwrapBody parses a JSON-looking string body into a structured value. One
// round only: a doubly-encoded inner string stays a string.
func unwrapBody(body any) any {
	s, ok := body.(string)
	if !ok {
		return body
	}
	trimmed := strings.TrimSpace(s)
	if trimmed == "" || (trimmed[0] != '{' && trimmed[0] != '[') {
		return body
	}
	var v any
	if err := json.Unmarshal([]byte(trimmed), &v); err != nil {
		return body
	}
	return v
}

// dependencyErrorLine returns the log line containing the first dependency
// error pattern hit.
func dependencyErrorLine(logText string) (string, bool) {
	for _, pattern := range dependencyErrorPatterns {
		idx := strings.Index(logText, pattern)
		if idx < 0 {
			continue
		}
		start := strings.LastIndexByte(logText[:idx], '\n') + 1
		end := len(logText)
		if nl := strings.IndexByte(logText[idx:], '\n'); nl >= 0 {
			end = idx + nl
		}
		return strings.TrimSpace(logText[start:end]), true
	}
	return "", false
}

func dependencyFailure(line, logText string) *Result {
	return &Result{
		StatusCode: 500,
		Headers:    map[string]string{},
		Body: map[string]any{
			"error":  "Function failed with a dependency error",
			"detail": line,
			"logs":   Excerpt(logText),
		},
	}
}
