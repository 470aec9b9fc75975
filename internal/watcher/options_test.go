package watcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions("/data/in")

	assert.Equal(t, "/data/in", opts.Path)
	assert.Equal(t, KindCreated, opts.Kind)
	assert.True(t, opts.WaitForCompletion)
}

func TestOptions_SetDefaults(t *testing.T) {
	opts := Options{Path: "/data/in"}
	opts.setDefaults()

	assert.Equal(t, KindCreated, opts.Kind)
	assert.Equal(t, 5*time.Second, opts.WaitDuration)
	assert.Equal(t, time.Hour, opts.MaxWatchDuration)
}

func TestOptions_SetDefaultsKeepsExplicitValues(t *testing.T) {
	opts := Options{
		Path:             "/data/in",
		Kind:             KindUpdated,
		WaitDuration:     250 * time.Millisecond,
		MaxWatchDuration: -1, // unbounded
	}
	opts.setDefaults()

	assert.Equal(t, KindUpdated, opts.Kind)
	assert.Equal(t, 250*time.Millisecond, opts.WaitDuration)
	assert.Equal(t, time.Duration(-1), opts.MaxWatchDuration)
}

func TestOptions_Validate(t *testing.T) {
	opts := DefaultOptions("/data/in")
	opts.setDefaults()
	require.NoError(t, opts.validate())

	missing := Options{}
	missing.setDefaults()
	assert.Error(t, missing.validate())

	badKind := Options{Path: "/data/in", Kind: "moved"}
	badKind.setDefaults()
	assert.Error(t, badKind.validate())
}
