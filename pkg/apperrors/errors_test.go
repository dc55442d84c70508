package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCustomErrorUnwrapsToKind(t *testing.T) {
	err := NewAlreadyUsed("invite already redeemed")
	wrapped := fmt.Errorf("redeem: %w", err)

	assert.True(t, errors.Is(wrapped, ErrAlreadyUsed))
	assert.False(t, errors.Is(wrapped, ErrExpired))
	assert.Equal(t, "redeem: invite already redeemed", wrapped.Error())
}

func TestDetailsOf(t *testing.T) {
	err := NewConflict("taken").WithDetails(map[string]interface{}{"is_active": true})
	assert.Equal(t, true, DetailsOf(fmt.Errorf("x: %w", err))["is_active"])
	assert.Nil(t, DetailsOf(errors.New("plain")))
}

func TestIsMatchesAnyKind(t *testing.T) {
	err := NewExpired("otp expired")
	assert.True(t, Is(err, ErrNotFound, ErrExpired))
	assert.False(t, Is(err, ErrNotFound, ErrForbidden))
}
