package lending_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/5w1tchy/lending-api/internal/lending"
)

func TestStorageError_MatchesSentinelAndCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("borrow: %w", lending.NewStorageError("open_borrow", cause))

	assert.ErrorIs(t, err, lending.ErrStorage)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, lending.ErrNotFound)

	var se *lending.StorageError
	assert.True(t, errors.As(err, &se))
	assert.Equal(t, "open_borrow", se.Op)
	assert.Contains(t, err.Error(), "connection reset")
}
