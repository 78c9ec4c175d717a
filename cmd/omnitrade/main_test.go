package main

import (
	"flag"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags_Interleaved(t *testing.T) {
	var exchange string
	pos, cfgPath, err := parseFlags("alerts add", []string{"BTC/USDT", "below", "50000", "-exchange", "binance", "-config", "/tmp/c.yaml"},
		func(fs *flag.FlagSet) { fs.StringVar(&exchange, "exchange", "", "") })
	require.NoError(t, err)
	assert.Equal(t, []string{"BTC/USDT", "below", "50000"}, pos)
	assert.Equal(t, "binance", exchange)
	assert.Equal(t, "/tmp/c.yaml", cfgPath)

	pos, _, err = parseFlags("run", []string{"-config", "x.yaml"}, nil)
	require.NoError(t, err)
	assert.Empty(t, pos)

	_, _, err = parseFlags("run", []string{"-bogus"}, nil)
	assert.Error(t, err)
}

func TestJoinOr(t *testing.T) {
	assert.Equal(t, "none", joinOr(nil, "none"))
	assert.Equal(t, "telegram, native", joinOr([]string{"telegram", "native"}, "none"))
}
