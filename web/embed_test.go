package web

import (
	"io/fs"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticContainsClient(t *testing.T) {
	for _, name := range []string{"index.html", "app.js", "style.css"} {
		_, err := fs.Stat(Static(), name)
		assert.NoError(t, err, name)
	}
}

// Flight data comes from a remote feed, so every value placed into markup must be escaped
func TestClientEscapesInterpolatedValues(t *testing.T) {
	src, err := fs.ReadFile(Static(), "app.js")
	require.NoError(t, err)

	// Values that never reach markup, or are fixed strings
	safe := map[string]bool{}
	for _, expr := range []string{
		"proto",
		"location.host",
		"d.status",
		"r.selected ? 'selected-row' : ''",
		"r.low_altitude ? '<span title=\"Low Altitude\">⚠️</span> ' : ''",
	} {
		safe[expr] = true
	}

	interpolation := regexp.MustCompile(`\$\{([^}]*)\}`)
	matches := interpolation.FindAllStringSubmatch(string(src), -1)
	require.NotEmpty(t, matches)

	for _, m := range matches {
		expr := strings.TrimSpace(m[1])
		if safe[expr] {
			continue
		}
		escaped := strings.HasPrefix(expr, "esc(") ||
			strings.HasPrefix(expr, "num(") ||
			strings.HasPrefix(expr, "encodeURIComponent(")
		assert.True(t, escaped, "unescaped interpolation ${%s}", expr)
	}

	for _, field := range []string{"r.callsign", "r.airline", "r.origin_country", "r.squawk", "r.icao24", "r.value", "s.airline"} {
		assert.Contains(t, string(src), "esc("+field+")")
	}
}
