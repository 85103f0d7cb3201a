package browser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultOptions(t *testing.T) {
	opt := DefaultOptions()
	require.True(t, opt.Headless)
	require.Equal(t, "Asia/Shanghai", opt.Timezone)
	require.Equal(t, 30*time.Second, opt.PageLoadTimeout)
}

func TestOptionsWithDefaults(t *testing.T) {
	opt := Options{Settle: -time.Second, Timezone: "UTC"}.withDefaults()
	require.Equal(t, DefaultUserAgent, opt.UserAgent)
	require.Equal(t, DefaultLocale, opt.Locale)
	require.Equal(t, 30*time.Second, opt.PageLoadTimeout)
	require.Zero(t, opt.Settle)
	require.Equal(t, "UTC", opt.Timezone)

	// an empty zone keeps the host zone
	require.Empty(t, Options{}.withDefaults().Timezone)
}
