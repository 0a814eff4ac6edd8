package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneKeepsCodeAndMatchesTemplate(t *testing.T) {
	err := Clone(ErrNotFound, "cohort not found")
	assert.Equal(t, "cohort not found", err.Message)
	assert.True(t, stderrors.Is(err, ErrNotFound))
	assert.True(t, IsNotFound(fmt.Errorf("wrapped: %w", err)))
	assert.False(t, IsConflict(err))
	assert.Equal(t, "resource not found", ErrNotFound.Message)
}

func TestFromValidationCollectsFields(t *testing.T) {
	type payload struct {
		Name  string  `validate:"required"`
		Ratio float64 `validate:"gte=0,lte=1"`
	}
	verr := validator.New().Struct(payload{Ratio: 2})
	require.Error(t, verr)

	err := FromValidation(verr, "invalid module")
	require.NotNil(t, err)
	assert.True(t, IsValidation(err))
	assert.Equal(t, "required", err.Fields["Name"])
	assert.Equal(t, "lte=1", err.Fields["Ratio"])
	assert.Contains(t, err.Message, "Name, Ratio")
}

func TestFieldAndKinds(t *testing.T) {
	err := Field("dateFin", "must be after dateDebut")
	assert.True(t, IsValidation(err))
	assert.Equal(t, map[string]string{"dateFin": "must be after dateDebut"}, err.Fields)

	assert.True(t, IsAuth(Clone(ErrForbidden, "")))
	assert.True(t, IsAuth(ErrUnauthorized))
	assert.True(t, IsTransport(Wrap(stderrors.New("dial tcp"), ErrTransportFailure.Code, ErrTransportFailure.Status, "down")))
	assert.Equal(t, ErrInternal.Code, FromError(stderrors.New("boom")).Code)
	assert.Nil(t, FromError(nil))
}
