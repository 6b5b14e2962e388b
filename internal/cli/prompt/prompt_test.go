package prompt

import (
	"errors"
	"fmt"
	"testing"

	"github.com/manifoldco/promptui"
	"github.com/stretchr/testify/assert"
)

func TestIsAborted(t *testing.T) {
	assert.True(t, IsAborted(promptui.ErrInterrupt))
	assert.True(t, IsAborted(promptui.ErrEOF))
	assert.True(t, IsAborted(fmt.Errorf("prompt: %w", ErrAborted)))
	assert.False(t, IsAborted(promptui.ErrAbort))
	assert.False(t, IsAborted(errors.New("boom")))
}

func TestWrapError(t *testing.T) {
	assert.NoError(t, wrapError(nil))
	assert.ErrorIs(t, wrapError(promptui.ErrInterrupt), ErrAborted)

	other := errors.New("boom")
	assert.Equal(t, other, wrapError(other))
}

func TestConfirmWithForce(t *testing.T) {
	ok, err := ConfirmWithForce("Delete everything", true)
	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestCheckLength(t *testing.T) {
	assert.Error(t, checkLength("short", 8))
	assert.NoError(t, checkLength("long-enough", 8))
}
