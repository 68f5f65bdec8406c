package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gravimeter-go/errcode"
)

func TestParseOnOff(t *testing.T) {
	on, err := parseOnOff([]string{"request", "on"})
	require.NoError(t, err)
	assert.True(t, on)

	on, err = parseOnOff([]string{"request", "off"})
	require.NoError(t, err)
	assert.False(t, on)

	for _, args := range [][]string{
		{"request"},
		{"request", "of"},
		{"request", "ON"},
		{"request", "on", "now"},
	} {
		_, err := parseOnOff(args)
		assert.ErrorIs(t, err, errcode.InvalidCommand, "%v", args)
	}
}
