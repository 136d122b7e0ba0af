package format

import (
	"testing"

	"cmdrunner/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, source string, args ...string) string {
	t.Helper()
	tpl, err := Parse(source)
	require.NoError(t, err)
	out, err := tpl.Render(args)
	require.NoError(t, err)
	return out
}

func TestRenderPositional(t *testing.T) {
	got := render(t, "Drive: {1}\nFolder: {2}", ` Directory of D:\projects\CommandRunner`, "D", `\projects\CommandRunner`)
	assert.Equal(t, "Drive: D\nFolder: \\projects\\CommandRunner", got)

	assert.Equal(t, "b-a-b", render(t, "{1}-{0}-{1}", "a", "b"))
	assert.Equal(t, "no holes", render(t, "no holes"))
	assert.Equal(t, "", render(t, ""))
}

func TestRenderAlignment(t *testing.T) {
	assert.Equal(t, "[   ab]", render(t, "[{0,5}]", "ab"))
	assert.Equal(t, "[ab   ]", render(t, "[{0,-5}]", "ab"))
	assert.Equal(t, "[toolong]", render(t, "[{0,3}]", "toolong"))
	assert.Equal(t, "[  äö]", render(t, "[{0, 4}]", "äö"))
}

func TestAlignmentLimit(t *testing.T) {
	assert.Len(t, render(t, "{0,999999}", "x"), 999999)
}

func TestRenderEscapes(t *testing.T) {
	assert.Equal(t, "{x}", render(t, "{{{0}}}", "x"))
	assert.Equal(t, "{} and {0}", render(t, "{{}} and {{0}}"))
}

func TestParseIgnoresSpec(t *testing.T) {
	assert.Equal(t, "a&b", render(t, "{0:replace(nosuchmap)}", "a&b"))
}

func TestParseErrors(t *testing.T) {
	for _, source := range []string{
		"a}b",
		"{x}",
		"{0",
		"{0,}",
		"{0:abc",
		"{0:a{b}",
		"{}",
		"{0,1000000}",
		"{0,-50000000}",
		"{1000000}",
	} {
		t.Run(source, func(t *testing.T) {
			_, err := Parse(source)
			require.Error(t, err)
			assert.True(t, errors.IsErrorCode(err, errors.ErrFormatInvalid))
		})
	}
}

func TestRenderMissingCapture(t *testing.T) {
	tpl, err := Parse("{0} {2}")
	require.NoError(t, err)

	_, err = tpl.Render([]string{"a", "b"})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrFormatInvalid))
	assert.Equal(t, 2, errors.GetErrorDetails(err)["captures"])
}
