package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(cause, CodeStore, "select employees")

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.True(t, HasCode(err, CodeStore))
	assert.Equal(t, "select employees: connection reset", err.Error())
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, CodeStore, "ignored"))
}

func TestHasCodeThroughFmtWrap(t *testing.T) {
	err := fmt.Errorf("deserialize: %w", New(CodeConfiguration, "no primary field"))
	assert.True(t, Is(err, CodeConfiguration))
	assert.False(t, HasCode(err, CodeNotFound))

	code, ok := CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, CodeConfiguration, code)
}

func TestHasCodeOnPlainError(t *testing.T) {
	_, ok := CodeOf(errors.New("plain"))
	assert.False(t, ok)
}
