package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type reloadSummary struct {
	Entries  int    `json:"entries" yaml:"entries"`
	Duration string `json:"duration" yaml:"duration"`
}

func TestParseFormat(t *testing.T) {
	for input, want := range map[string]Format{
		"":       FormatYAML,
		"yaml":   FormatYAML,
		"yml":    FormatYAML,
		"YAML":   FormatYAML,
		"json":   FormatJSON,
		" json ": FormatJSON,
	} {
		got, err := ParseFormat(input)
		require.NoError(t, err, "input %q", input)
		assert.Equal(t, want, got, "input %q", input)
	}

	_, err := ParseFormat("toml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "toml")
}

func TestEncodeJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, FormatJSON, reloadSummary{Entries: 1200, Duration: "3s"}))

	var got reloadSummary
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 1200, got.Entries)
	assert.True(t, strings.Contains(buf.String(), "\n  "), "output is indented")
}

func TestEncodeYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, FormatYAML, reloadSummary{Entries: 7, Duration: "90ms"}))

	var got reloadSummary
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 7, got.Entries)
	assert.Equal(t, "90ms", got.Duration)
}
