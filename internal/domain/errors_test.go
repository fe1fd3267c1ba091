package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"pricepilot/internal/domain"
)

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("update user 42: %w", domain.ErrUserNotFound)

	assert.Equal(t, domain.KindNotFound, domain.KindOf(wrapped))
	assert.Equal(t, domain.KindConflict, domain.KindOf(domain.ErrDuplicateEmail))
	assert.Equal(t, domain.KindValidation, domain.KindOf(domain.Validationf("bad %s", "input")))
	assert.Equal(t, domain.KindConfiguration, domain.KindOf(domain.MissingConfig("auth.jwtsecret")))
	assert.Equal(t, domain.KindDependency, domain.KindOf(errors.New("disk on fire")))
}

func TestErrorsIsMatchesSentinels(t *testing.T) {
	err := fmt.Errorf("insert user: %w", domain.ErrDuplicateEmail)
	assert.True(t, errors.Is(err, domain.ErrDuplicateEmail))
	assert.False(t, errors.Is(err, domain.ErrUserNotFound))
}

func TestDependencyKeepsCauseOutOfMessage(t *testing.T) {
	cause := errors.New("dial tcp 10.0.0.1:5432: connection refused")
	err := domain.Dependency("load user", cause)

	assert.Equal(t, "load user", domain.MessageOf(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}
