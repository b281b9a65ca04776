package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsIdentity(t *testing.T) {
	cause := errors.New("card_declined")
	err := fmt.Errorf("create session: %w", Wrap(ErrProvider, cause))

	assert.True(t, errors.Is(err, ErrProvider))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, ErrGatewayTimeout))
	assert.Equal(t, KindGateway, KindOf(err))
	assert.Contains(t, err.Error(), "card_declined")
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindValidation, KindOf(ErrUnknownTrip))
	assert.Equal(t, KindNotFound, KindOf(ErrNotFound))
	assert.Equal(t, KindStateConflict, KindOf(fmt.Errorf("x: %w", ErrAlreadyCancelled)))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, KindInternal, KindOf(nil))
}
