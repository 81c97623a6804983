package invoke

import (
	"strings"

	"github.com/autodeployr/engine/pkg/imagetag"
)

// Convention describes how an event payload is handed to the function
// process inside its container. There are exactly four supported shapes;
// anything unrecognized falls back to Python.
type Convention int

const (
	Python Convention = iota
	Java
	CSharp
	PHP
)

func (c Convention) String() string {
	switch c {
	case Java:
		return "java"
	case CSharp:
		return "csharp"
	case PHP:
		return "php"
	default:
		return "python"
	}
}

// ParseConvention maps a user-supplied language name to a Convention.
// The second return is false when the name is empty or unknown.
func ParseConvention(language string) (Convention, bool) {
	switch strings.ToLower(strings.TrimSpace(language)) {
	case "python", "python3", "py":
		return Python, true
	case "java":
		return Java, true
	case "csharp", "c#", "dotnet", ".net":
		return CSharp, true
	case "php":
		return PHP, true
	}
	return Python, false
}

// ResolveConvention picks the payload convention for an invocation. An
// explicit language always wins; otherwise the image tag is sniffed for a
// language hint, and Python is the final default.
func ResolveConvention(language string, tag imagetag.ImageTag) Convention {
	if conv, ok := ParseConvention(language); ok {
		return conv
	}
	probe := strings.ToLower(tag.String())
	switch {
	case strings.Contains(probe, "java"):
		return Java
	case strings.Contains(probe, "csharp"), strings.Contains(probe, "dotnet"):
		return CSharp
	case strings.Contains(probe, "php"):
		return PHP
	}
	return Python
}
