package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCSV(t *testing.T) {
	records, err := parseCSV(strings.NewReader("flour, grams\n\"salt, sea\",g\n"), 2)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"flour", "grams"}, {"salt, sea", "g"}}, records)

	_, err = parseCSV(strings.NewReader("lunch,#49B64E\n"), 3)
	assert.Error(t, err)
}
