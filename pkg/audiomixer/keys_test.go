package audiomixer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKey(t *testing.T) {
	tests := []struct {
		symbol      string
		expected    Key
		expectError bool
	}{
		{symbol: "ctrl", expected: KeyCtrl},
		{symbol: "Shift", expected: KeyShift},
		{symbol: "M", expected: Key('M')},
		{symbol: "m", expected: Key('M')},
		{symbol: "7", expected: Key('7')},
		{symbol: "}", expected: 0xDD},
		{symbol: "]", expected: 0xDD},
		{symbol: "{", expected: 0xDB},
		{symbol: "plus", expected: 0xBB},
		{symbol: "f1", expected: KeyF1},
		{symbol: "F12", expected: KeyF1 + 11},
		{symbol: "f", expected: Key('F')},
		{symbol: "f13", expectError: true},
		{symbol: "f5x", expectError: true},
		{symbol: "", expectError: true},
		{symbol: "é", expectError: true},
		{symbol: "hyper", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			key, err := ParseKey(tt.symbol)
			if tt.expectError {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, key)
		})
	}
}

func TestParseCombo(t *testing.T) {
	keys, err := ParseCombo(" Ctrl + shift ")
	require.NoError(t, err)
	assert.Equal(t, []Key{KeyCtrl, KeyShift}, keys)

	keys, err = ParseCombo("ctrl+CTRL+alt")
	require.NoError(t, err)
	assert.Equal(t, []Key{KeyCtrl, KeyAlt}, keys)

	keys, err = ParseCombo("win+plus")
	require.NoError(t, err)
	assert.Equal(t, []Key{KeyWin, 0xBB}, keys)

	_, err = ParseCombo("ctrl+nope")
	assert.Error(t, err)

	_, err = ParseCombo("ctrl+")
	assert.Error(t, err)
}

func TestKeyCanonical(t *testing.T) {
	assert.Equal(t, KeyShift, keyLeftShift.Canonical())
	assert.Equal(t, KeyShift, keyRightShift.Canonical())
	assert.Equal(t, KeyCtrl, keyRightCtrl.Canonical())
	assert.Equal(t, KeyAlt, keyLeftAlt.Canonical())
	assert.Equal(t, KeyWin, keyRightWin.Canonical())
	assert.Equal(t, Key('M'), Key('M').Canonical())
}

func TestKeyString(t *testing.T) {
	assert.Equal(t, "ctrl", KeyCtrl.String())
	assert.Equal(t, "m", Key('M').String())
	assert.Equal(t, "f5", (KeyF1 + 4).String())
	assert.Equal(t, "vk(0xDD)", Key(0xDD).String())

	// anything printed by String parses back to the same key
	for _, key := range []Key{KeyCtrl, KeySpace, KeyF1 + 9, Key('Z'), Key('0')} {
		parsed, err := ParseKey(key.String())
		require.NoError(t, err)
		assert.Equal(t, key, parsed)
	}
}
