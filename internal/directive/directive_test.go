package directive

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "job.sh")
	require.NoError(t, os.WriteFile(path, []byte(body), 0755))
	return path
}

func TestParseBasicDirectives(t *testing.T) {
	path := writeScript(t, "#!/bin/sh\n#JS name=\"my job\" cores=4 mem_mb=2048\n#JS time_limit=01:02:03\necho hi\n")
	req, err := ParseFile(path)
	require.NoError(t, err)
	require.Equal(t, "my job", req.Name)
	require.Equal(t, 4, req.Cores)
	require.Equal(t, 2048, req.MemMB)
	require.NotNil(t, req.TimeLimitSec)
	require.Equal(t, 1*3600+2*60+3, *req.TimeLimitSec)
}

func TestParseNoDirectives(t *testing.T) {
	path := writeScript(t, "#!/bin/sh\necho hi\n")
	req, err := ParseFile(path)
	require.NoError(t, err)
	require.Equal(t, "", req.Name)
	require.Equal(t, 0, req.Cores)
}

func TestParseQuotedEscapes(t *testing.T) {
	path := writeScript(t, "#JS name=\"a \\\"quoted\\\" value\"\n")
	req, err := ParseFile(path)
	require.NoError(t, err)
	require.Equal(t, `a "quoted" value`, req.Name)
}

func TestParseBadDirectiveSyntax(t *testing.T) {
	path := writeScript(t, "#JS cores=notanumber\n")
	_, err := ParseFile(path)
	require.Error(t, err)
	var bad *BadDirective
	require.ErrorAs(t, err, &bad)
	require.Equal(t, 1, bad.Line)
}

func TestParseUnterminatedQuote(t *testing.T) {
	path := writeScript(t, "#JS name=\"unterminated\n")
	_, err := ParseFile(path)
	require.Error(t, err)
}

func TestParseBadTimeLimit(t *testing.T) {
	path := writeScript(t, "#JS time_limit=5:99:00\n")
	_, err := ParseFile(path)
	require.Error(t, err)
}

func TestParseUnknownKeyIgnored(t *testing.T) {
	path := writeScript(t, "#JS cores=2 gpu=1\n")
	req, err := ParseFile(path)
	require.NoError(t, err)
	require.Equal(t, 2, req.Cores)
}

func TestParseStopsAtFirstNonHeaderLine(t *testing.T) {
	path := writeScript(t, "#JS cores=2\necho hi\n#JS cores=99\n")
	req, err := ParseFile(path)
	require.NoError(t, err)
	require.Equal(t, 2, req.Cores)
}
