package invoke

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/autodeployr/engine/pkg/imagetag"
)

func TestParseConvention(t *testing.T) {
	for _, tc := range []struct {
		language string
		expected Convention
		ok       bool
	}{
		{"python", Python, true},
		{"python3", Python, true},
		{"py", Python, true},
		{"java", Java, true},
		{" Java ", Java, true},
		{"csharp", CSharp, true},
		{"c#", CSharp, true},
		{"dotnet", CSharp, true},
		{".net", CSharp, true},
		{"php", PHP, true},
		{"", Python, false},
		{"ruby", Python, false},
	} {
		conv, ok := ParseConvention(tc.language)
		require.Equal(t, tc.expected, conv, "language %q", tc.language)
		require.Equal(t, tc.ok, ok, "language %q", tc.language)
	}
}

func TestResolveConventionExplicitWins(t *testing.T) {
	tag, err := imagetag.Encode("", "bob", "java-billing", "handler")
	require.NoError(t, err)

	// The tag smells like Java, but the declared language is authoritative.
	require.Equal(t, PHP, ResolveConvention("php", tag))
	require.Equal(t, Java, ResolveConvention("", tag))
}

func TestResolveConventionSniffsTag(t *testing.T) {
	for _, tc := range []struct {
		appName  string
		expected Convention
	}{
		{"orders", Python},
		{"java-billing", Java},
		{"dotnet-api", CSharp},
		{"csharp-api", CSharp},
		{"php-site", PHP},
	} {
		tag, err := imagetag.Encode("", "bob", tc.appName, "handler")
		require.NoError(t, err)
		require.Equal(t, tc.expected, ResolveConvention("", tag), "app %q", tc.appName)
	}
}

func TestConventionString(t *testing.T) {
	require.Equal(t, "python", Python.String())
	require.Equal(t, "java", Java.String())
	require.Equal(t, "csharp", CSharp.String())
	require.Equal(t, "php", PHP.String())
}
