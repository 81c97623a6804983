// Package imagetag encodes tenant, app and function identity into the image
// tags the engine stamps on everything it builds. The wire format is
// "autodeployr-{userId}-{appName}-{functionName}": lower-case, restricted to
// [a-z0-9._-], with "-" reserved as the segment separator. Tags are decoded
// back into an Identity here and nowhere else.
package imagetag

import (
	"strings"

	"github.com/autodeployr/engine/pkg/errors"
)

// DefaultPrefix marks every image owned by the platform.
const DefaultPrefix = "autodeployr"

const (
	fallbackApp      = "unknown"
	fallbackFunction = "function"
)

// ImageTag is a validated image reference. The zero value is no tag.
type ImageTag struct {
	raw string
}

func (t ImageTag) String() string {
	return t.raw
}

func (t ImageTag) IsZero() bool {
	return t.raw == ""
}

// Identity returns the tenant identity embedded in the tag. Partial for tags
// the engine did not encode itself.
func (t ImageTag) Identity() Identity {
	return Decode(t.raw)
}

// Identity is the decoded form of a tag. A partial Identity (missing
// segments) is fine for diagnostics but must never drive a trust decision;
// check Complete first.
type Identity struct {
	Prefix       string
	UserID       string
	AppName      string
	FunctionName string
}

func (id Identity) Complete() bool {
	return id.Prefix != "" && id.UserID != "" && id.AppName != "" && id.FunctionName != ""
}

// Encode builds the tag for one function. The user id is mandatory: an id
// that sanitizes to nothing is a validation error, because a fabricated
// placeholder segment would let two tenants collide on one tag. App and
// function names degrade to fixed placeholder segments instead.
func Encode(prefix, userID, appName, functionName string) (ImageTag, error) {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	p := Sanitize(prefix)
	if p == "" {
		return ImageTag{}, errors.Validationf("image tag prefix %q is empty after sanitization", prefix)
	}

	u := Sanitize(userID)
	if u == "" {
		return ImageTag{}, errors.Validationf("tenant id %q is empty after sanitization, refusing to build an unowned image", userID)
	}

	a := Sanitize(appName)
	if a == "" {
		a = fallbackApp
	}
	f := Sanitize(functionName)
	if f == "" {
		f = fallbackFunction
	}

	return ImageTag{raw: p + "-" + u + "-" + a + "-" + f}, nil
}

// Decode splits a raw tag into its identity segments. Tags with at least four
// segments decode fully, with any extra segments folded into the function
// name. Shorter tags yield a partial Identity.
func Decode(raw string) Identity {
	raw = trimRef(raw)
	if raw == "" {
		return Identity{}
	}

	parts := strings.Split(raw, "-")
	id := Identity{Prefix: parts[0]}
	if len(parts) > 1 {
		id.UserID = parts[1]
	}
	if len(parts) > 2 {
		id.AppName = parts[2]
	}
	if len(parts) > 3 {
		id.FunctionName = strings.Join(parts[3:], "-")
	}
	return id
}

// Parse wraps an externally supplied image reference. It trims a trailing
// ":tag" (the runtime reports "name:latest" even when the engine tagged plain
// "name") but applies no other normalization; resolution handles drifted
// references explicitly.
func Parse(raw string) (ImageTag, error) {
	trimmed := trimRef(raw)
	if trimmed == "" {
		return ImageTag{}, errors.Validationf("image tag is empty")
	}
	if strings.ContainsAny(trimmed, " \t\n/") {
		return ImageTag{}, errors.Validationf("image tag %q contains illegal characters", raw)
	}
	return ImageTag{raw: trimmed}, nil
}

// Sanitize maps an arbitrary identity segment into tag-legal form: lower-case
// [a-z0-9._] only. Hyphens, underscores and whitespace become single
// underscores so that "-" stays reserved for joining segments; every other
// character is dropped. Separators never lead, trail, or repeat.
// Sanitize(Sanitize(x)) == Sanitize(x) for all x.
func Sanitize(s string) string {
	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))
	prevSep := byte(0)
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			prevSep = 0
		case r == '.':
			if prevSep != '.' {
				b.WriteByte('.')
			}
			prevSep = '.'
		case r == '-' || r == '_' || r == ' ' || r == '\t':
			if prevSep != '_' {
				b.WriteByte('_')
			}
			prevSep = '_'
		default:
			// dropped
		}
	}

	return strings.Trim(b.String(), "._")
}

// trimRef strips a trailing ":tag" qualifier from a reference.
func trimRef(raw string) string {
	raw = strings.TrimSpace(raw)
	if idx := strings.LastIndex(raw, ":"); idx >= 0 {
		raw = raw[:idx]
	}
	return raw
}
