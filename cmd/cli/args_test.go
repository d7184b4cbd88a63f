package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitArgs(t *testing.T) {
	pos, flags := splitArgs([]string{"cat", "song", "--limit", "3"})
	assert.Equal(t, []string{"cat", "song"}, pos)
	assert.Equal(t, []string{"--limit", "3"}, flags)

	pos, flags = splitArgs([]string{"--exact"})
	assert.Empty(t, pos)
	assert.Equal(t, []string{"--exact"}, flags)

	pos, flags = splitArgs([]string{"id"})
	assert.Equal(t, []string{"id"}, pos)
	assert.Nil(t, flags)
}

func TestParseFeatures(t *testing.T) {
	got, err := parseFeatures("0.1, 0.2 -3e-1")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2, -0.3}, got)

	got, err = parseFeatures("[1,2]")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, got)

	_, err = parseFeatures("")
	assert.Error(t, err)

	_, err = parseFeatures("0.1,abc")
	assert.Error(t, err)
}
