package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGuardRollsBackAndRepanics(t *testing.T) {
	rolledBack := false
	assert.PanicsWithValue(t, "boom", func() {
		defer guard(discardLogger(), "test", func() { rolledBack = true })
		panic("boom")
	})
	assert.True(t, rolledBack)
}

func TestGuardIsQuietWithoutPanic(t *testing.T) {
	rolledBack := false
	func() {
		defer guard(discardLogger(), "test", func() { rolledBack = true })
	}()
	assert.False(t, rolledBack)
}
