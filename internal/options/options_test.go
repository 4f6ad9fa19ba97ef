package options

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type testTarget struct {
	interval int
	label    string
}

func TestNew(t *testing.T) {
	t.Run("applies a fallible option", func(t *testing.T) {
		target := &testTarget{}
		opt := New(func(tt *testTarget) error {
			tt.interval = 5
			return nil
		})

		require.NoError(t, Apply(target, opt))
		require.Equal(t, 5, target.interval)
	})

	t.Run("propagates the option's error", func(t *testing.T) {
		sentinel := errors.New("interval must be positive")
		opt := New(func(tt *testTarget) error {
			return sentinel
		})

		require.ErrorIs(t, Apply(&testTarget{}, opt), sentinel)
	})
}

func TestNoError(t *testing.T) {
	target := &testTarget{}
	opt := NoError(func(tt *testTarget) {
		tt.label = "acq"
	})

	require.NoError(t, Apply(target, opt))
	require.Equal(t, "acq", target.label)
}

func TestApply(t *testing.T) {
	t.Run("applies options in order", func(t *testing.T) {
		target := &testTarget{}
		require.NoError(t, Apply(target,
			NoError(func(tt *testTarget) { tt.interval = 1 }),
			NoError(func(tt *testTarget) { tt.interval = 2 }),
		))
		require.Equal(t, 2, target.interval)
	})

	t.Run("stops at the first error", func(t *testing.T) {
		target := &testTarget{}
		failed := errors.New("bad option")
		err := Apply(target,
			New(func(tt *testTarget) error { return failed }),
			NoError(func(tt *testTarget) { tt.interval = 9 }),
		)

		require.ErrorIs(t, err, failed)
		require.Zero(t, target.interval)
	})

	t.Run("no options is a no-op", func(t *testing.T) {
		require.NoError(t, Apply(&testTarget{}))
	})
}
