package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResultMarker(t *testing.T) {
	log := "booting runtime\nFINAL_RESULT: {\"statusCode\":201,\"body\":{\"x\":1}}\n"

	result, strategy := ExtractWithStrategy(log)
	require.Equal(t, "result_marker", strategy)
	require.Equal(t, 201, result.StatusCode)
	require.Equal(t, map[string]string{}, result.Headers)
	require.Equal(t, map[string]any{"x": float64(1)}, result.Body)
}

func TestResultMarkerLastOccurrenceWins(t *testing.T) {
	log := "FINAL_RESULT: {\"statusCode\":200,\"body\":\"first\"}\n" +
		"retrying\n" +
		"FINAL_RESULT: {\"statusCode\":418,\"body\":\"second\"}\n"

	result := Extract(log)
	require.Equal(t, 418, result.StatusCode)
	require.Equal(t, "second", result.Body)
}

func TestCompletionMarkerBackscan(t *testing.T) {
	log := "starting\n{\"statusCode\": 204}\n=== FUNCTION WRAPPER COMPLETED WITH STATUS: 0\n"

	result, strategy := ExtractWithStrategy(log)
	require.Equal(t, "completion_marker", strategy)
	require.Equal(t, 204, result.StatusCode)
}

func TestWholeLogObject(t *testing.T) {
	result, strategy := ExtractWithStrategy(`{"message":"ok"}`)
	require.Equal(t, "whole_log", strategy)
	require.Equal(t, 200, result.StatusCode)
	require.Equal(t, map[string]any{"message": "ok"}, result.Body)
}

func TestBraceSpanHeuristic(t *testing.T) {
	log := "some noise {\"statusCode\":202,\"body\":\"late\"} trailing noise"

	result, strategy := ExtractWithStrategy(log)
	require.Equal(t, "brace_span", strategy)
	require.Equal(t, 202, result.StatusCode)
	require.Equal(t, "late", result.Body)
}

func TestZeroExitSynthesis(t *testing.T) {
	log := "did some work\n=== FUNCTION WRAPPER COMPLETED WITH STATUS: 0\n"

	result, strategy := ExtractWithStrategy(log)
	require.Equal(t, "zero_exit", strategy)
	require.Equal(t, 200, result.StatusCode)
	require.Equal(t, map[string]any{"message": "Function completed successfully"}, result.Body)
}

func TestNoJSONAnywhere(t *testing.T) {
	result, strategy := ExtractWithStrategy("plain text, nothing useful")
	require.Equal(t, "none", strategy)
	require.Equal(t, 500, result.StatusCode)

	body, ok := result.Body.(map[string]any)
	require.True(t, ok)
	require.Contains(t, body["error"], "no valid JSON response")
}

func TestNonZeroExitWithoutJSON(t *testing.T) {
	log := "boom\n=== FUNCTION WRAPPER COMPLETED WITH STATUS: 1\n"

	result := Extract(log)
	require.Equal(t, 500, result.StatusCode)
}

func TestDependencyErrorShortCircuits(t *testing.T) {
	// even a valid result line must not mask a dependency crash
	log := "Traceback (most recent call last):\n" +
		"ModuleNotFoundError: No module named 'requests'\n" +
		"FINAL_RESULT: {\"statusCode\":200,\"body\":\"ok\"}\n"

	result, strategy := ExtractWithStrategy(log)
	require.Equal(t, "dependency_error", strategy)
	require.Equal(t, 500, result.StatusCode)

	body, ok := result.Body.(map[string]any)
	require.True(t, ok)
	require.Equal(t, "Function failed with a dependency error", body["error"])
	require.Equal(t, "ModuleNotFoundError: No module named 'requests'", body["detail"])
}

func TestDependencyErrorPatterns(t *testing.T) {
	for _, line := range []string{
		"ImportError: No module named flask",
		"java.lang.ClassNotFoundException: com.example.Handler",
		"Could not load file or assembly 'Newtonsoft.Json'",
		"PHP Fatal error:  Uncaught Error: Class \"Stripe\" not found",
	} {
		result, strategy := ExtractWithStrategy("noise\n" + line + "\nmore noise")
		require.Equal(t, "dependency_error", strategy, "line %q", line)
		require.Equal(t, 500, result.StatusCode)
	}
}

func TestStatusCodeDefaultsAndStringTolerance(t *testing.T) {
	result := Extract(`FINAL_RESULT: {"body":"no status"}`)
	require.Equal(t, 200, result.StatusCode)

	result = Extract(`FINAL_RESULT: {"statusCode":"404","body":"as string"}`)
	require.Equal(t, 404, result.StatusCode)
}

func TestHeaderExtraction(t *testing.T) {
	result := Extract(`FINAL_RESULT: {"statusCode":200,"headers":{"Content-Type":"application/json","X-Count":3},"body":"[]"}`)
	require.Equal(t, "application/json", result.Headers["Content-Type"])
	require.Equal(t, "3", result.Headers["X-Count"])
	require.Equal(t, []any{}, result.Body, "JSON-looking string body is unwrapped")
}

func TestBodyUnwrapsExactlyOnce(t *testing.T) {
	result := Extract(`FINAL_RESULT: {"statusCode":200,"body":"{\"a\":\"{\\\"b\\\":1}\"}"}`)

	body, ok := result.Body.(map[string]any)
	require.True(t, ok)
	require.Equal(t, `{"b":1}`, body["a"], "inner encoding must stay a string")
}

func TestNonObjectWholeLogIsNotParsed(t *testing.T) {
	result, strategy := ExtractWithStrategy("[1,2,3]")
	require.Equal(t, "none", strategy)
	require.Equal(t, 500, result.StatusCode)
}

func TestFailureExcerptIsBounded(t *testing.T) {
	logText := strings.Repeat("x", 5000)
	result := Failure("Function execution timed out after 90s", logText)

	require.Equal(t, 500, result.StatusCode)
	body, ok := result.Body.(map[string]any)
	require.True(t, ok)
	require.Len(t, body["logs"], ExcerptLimit)
	require.Equal(t, "Function execution timed out after 90s", body["error"])
}

func TestGarbledMarkerFallsThrough(t *testing.T) {
	// the last marker line is truncated; the completion backscan recovers the
	// earlier envelope
	log := "{\"statusCode\":207,\"ok\":true}\n" +
		"=== FUNCTION WRAPPER COMPLETED WITH STATUS: 0\n" +
		"FINAL_RESULT: {\"statusCo"

	result, strategy := ExtractWithStrategy(log)
	require.Equal(t, "completion_marker", strategy)
	require.Equal(t, 207, result.StatusCode)
}
