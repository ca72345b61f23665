package sdk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

// TestParseLevel checks zap level names pass through and empty means info.
func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"":       zapcore.InfoLevel,
		"  ":     zapcore.InfoLevel,
		"debug":  zapcore.DebugLevel,
		"WARN":   zapcore.WarnLevel,
		"error":  zapcore.ErrorLevel,
		" info ": zapcore.InfoLevel,
	}
	for in, want := range cases {
		got, err := parseLevel(in)
		require.NoError(t, err, "level %q", in)
		assert.Equal(t, want, got, "level %q", in)
	}

	_, err := parseLevel("loud")
	assert.Error(t, err)
	_, err = NewLogger("loud", false)
	assert.Error(t, err)
}

// TestAmountField checks amounts are logged as ether strings.
func TestAmountField(t *testing.T) {
	f := AmountField("amount", Ether(3))
	assert.Equal(t, "amount", f.Key)
	assert.Equal(t, "3", f.String)
	assert.Equal(t, "0", AmountField("gas", nil).String)
}
