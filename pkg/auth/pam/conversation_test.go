//go:build linux && cgo

package pam

import (
	"testing"

	"github.com/msteinert/pam/v2"
	"github.com/stretchr/testify/assert"
)

func TestConversation(t *testing.T) {
	conv := conversation("s3cret")

	resp, err := conv(pam.PromptEchoOff, "Password: ")
	assert.NoError(t, err)
	assert.Equal(t, "s3cret", resp)

	resp, err = conv(pam.TextInfo, "Last login: yesterday")
	assert.NoError(t, err)
	assert.Empty(t, resp)

	_, err = conv(pam.PromptEchoOn, "OTP: ")
	assert.Error(t, err)
}
