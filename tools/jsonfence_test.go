package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripCodeFence("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripCodeFence(`  {"a":1} `))
	assert.Equal(t, `[1,2]`, StripCodeFence("Here you go:\n```JSON\n[1,2]\n```\nThanks"))
}

func TestExtractJSON(t *testing.T) {
	r, ok := ExtractJSON("```json\n{\"goal\": \"g\"}\n```")
	require.True(t, ok)
	assert.Equal(t, "g", r.Get("goal").String())

	r, ok = ExtractJSON(`Sure! [{"from":1,"to":2}] hope that helps`)
	require.True(t, ok)
	assert.True(t, r.IsArray())
	assert.Equal(t, int64(2), r.Get("0.to").Int())

	_, ok = ExtractJSON("no json here")
	assert.False(t, ok)

	_, ok = ExtractJSON(`"just a string"`)
	assert.False(t, ok)
}
