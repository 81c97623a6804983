// Package event models the caller-supplied invocation payload and resolves
// the tenant identity buried in it. Callers ship HTTP-adapter shaped events
// whose user id can hide in half a dozen places; resolution is an ordered
// cascade tried most-trusted first.
package event

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/autodeployr/engine/pkg/errors"
)

// DefaultFallbackID is attributed to invocations with no resolvable tenant
// when a resolver explicitly allows that.
const DefaultFallbackID = "anonymous"

// Event is one invocation payload. Read-only once parsed; the engine passes
// the original bytes through to the container untouched.
type Event struct {
	HTTPMethod            string            `json:"httpMethod,omitempty"`
	Path                  string            `json:"path,omitempty"`
	Headers               map[string]string `json:"headers,omitempty"`
	QueryStringParameters map[string]string `json:"queryStringParameters,omitempty"`
	Body                  any               `json:"body,omitempty"`
	RequestContext        map[string]any    `json:"requestContext,omitempty"`

	raw []byte
}

// Parse decodes a caller payload. The original bytes are retained so that
// fields this model does not know about still reach the function.
func Parse(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, errors.Validationf("invocation event is not valid JSON: %v", err)
	}
	e.raw = make([]byte, len(data))
	copy(e.raw, data)
	return &e, nil
}

// Serialize returns the payload to hand to the container: the original bytes
// when the event came in over the wire, a fresh encoding otherwise.
func (e *Event) Serialize() ([]byte, error) {
	if len(e.raw) > 0 {
		return e.raw, nil
	}
	data, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Validationf("invocation event cannot be serialized: %v", err)
	}
	return data, nil
}

// OwnerLookup consults external app metadata for the owning tenant.
type OwnerLookup func(ctx context.Context, e *Event) (string, bool)

// IdentityResolver extracts the tenant id from an event. The zero value fails
// closed: an event carrying no identity is rejected rather than attributed to
// an arbitrary tenant.
type IdentityResolver struct {
	// Owner is tried after every in-event strategy; optional.
	Owner OwnerLookup
	// AllowFallback substitutes FallbackID when nothing resolves.
	AllowFallback bool
	// FallbackID defaults to DefaultFallbackID.
	FallbackID string
}

// identityStrategies are tried in order; the first hit wins.
var identityStrategies = []func(*Event) (string, bool){
	fromRequestContext,
	fromAuthBlock,
	fromUserBlock,
	fromHeaders,
	fromQuery,
}

// Resolve returns the tenant id for e.
func (r *IdentityResolver) Resolve(ctx context.Context, e *Event) (string, error) {
	if e == nil {
		return "", errors.Validationf("invocation event is nil")
	}

	for _, strategy := range identityStrategies {
		if id, ok := strategy(e); ok {
			return id, nil
		}
	}

	if r.Owner != nil {
		if id, ok := r.Owner(ctx, e); ok && id != "" {
			return id, nil
		}
	}

	if r.AllowFallback {
		if r.FallbackID != "" {
			return r.FallbackID, nil
		}
		return DefaultFallbackID, nil
	}

	return "", errors.Validationf("no tenant identity found in invocation event")
}

func fromRequestContext(e *Event) (string, bool) {
	return stringValue(e.RequestContext, "userId")
}

func fromAuthBlock(e *Event) (string, bool) {
	for _, key := range []string{"authentication", "auth"} {
		if block, ok := e.RequestContext[key].(map[string]any); ok {
			if id, ok := stringValue(block, "userId", "user_id", "id"); ok {
				return id, true
			}
		}
	}
	return "", false
}

func fromUserBlock(e *Event) (string, bool) {
	if block, ok := e.RequestContext["user"].(map[string]any); ok {
		return stringValue(block, "id", "userId", "user_id")
	}
	return "", false
}

// fromHeaders accepts any header whose lower-cased name contains both "user"
// and "id". Names are visited sorted so resolution does not depend on map
// order.
func fromHeaders(e *Event) (string, bool) {
	names := make([]string, 0, len(e.Headers))
	for name := range e.Headers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		lower := strings.ToLower(name)
		if strings.Contains(lower, "user") && strings.Contains(lower, "id") && e.Headers[name] != "" {
			return e.Headers[name], true
		}
	}
	return "", false
}

func fromQuery(e *Event) (string, bool) {
	for _, key := range []string{"userId", "user_id", "id"} {
		if v := e.QueryStringParameters[key]; v != "" {
			return v, true
		}
	}
	return "", false
}

func stringValue(m map[string]any, keys ...string) (string, bool) {
	for _, key := range keys {
		if v, ok := m[key].(string); ok && v != "" {
			return v, true
		}
	}
	return "", false
}
