package prompt

import (
	"errors"
	"fmt"

	"github.com/manifoldco/promptui"
)

// ErrPasswordMismatch indicates passwords don't match.
var ErrPasswordMismatch = errors.New("passwords do not match")

// Password reads a masked password.
func Password(label string) (string, error) {
	p := promptui.Prompt{Label: label, Mask: '*'}
	result, err := p.Run()
	return result, wrapError(err)
}

// PasswordWithConfirmation reads a password of at least minLength bytes
// and asks for it again.
func PasswordWithConfirmation(label, confirmLabel string, minLength int) (string, error) {
	p := promptui.Prompt{
		Label: label,
		Mask:  '*',
		Validate: func(input string) error {
			return checkLength(input, minLength)
		},
	}
	password, err := p.Run()
	if err != nil {
		return "", wrapError(err)
	}

	confirm, err := Password(confirmLabel)
	if err != nil {
		return "", err
	}
	if password != confirm {
		return "", ErrPasswordMismatch
	}
	return password, nil
}

func checkLength(input string, minLength int) error {
	if len(input) < minLength {
		return fmt.Errorf("password must be at least %d characters", minLength)
	}
	return nil
}
