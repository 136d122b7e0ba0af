package codec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type document struct {
	Name   string `json:"name" yaml:"name" toml:"name"`
	Banner string `json:"banner" yaml:"banner" toml:"banner"`
}

func TestParseFormat(t *testing.T) {
	for name, want := range map[string]Format{"json": JSON, "YAML": YAML, "yml": YAML, "toml": TOML} {
		got, err := ParseFormat(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestFromPath(t *testing.T) {
	assert.Equal(t, YAML, FromPath("rules.yml"))
	assert.Equal(t, TOML, FromPath("dir/rules.TOML"))
	assert.Equal(t, JSON, FromPath("rules.json"))
	assert.Equal(t, JSON, FromPath("rules.txt"))
}

func TestEncodeKeepsLeadingNewlines(t *testing.T) {
	want := document{Name: "drive", Banner: "\n*****\nERROR\n*****\n"}
	for _, f := range []Format{JSON, YAML, TOML} {
		t.Run(string(f), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Encode(&buf, f, want))

			var got document
			require.NoError(t, Decode(&buf, f, &got))
			assert.Equal(t, want, got)
		})
	}
}

func TestEncodeYAMLQuotesCarriageReturns(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, YAML, document{Name: "a", Banner: "one\r\ntwo"}))
	assert.Contains(t, buf.String(), `banner: "one\r\ntwo"`)
}
