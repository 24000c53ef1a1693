package errors

import (
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signupPayload struct {
	Name  string `validate:"required"`
	Email string `validate:"required,email"`
	Age   int    `validate:"gte=5"`
}

func TestFromValidatorExtractsFields(t *testing.T) {
	err := validator.New().Struct(signupPayload{Email: "not-an-email", Age: 3})
	require.Error(t, err)

	appErr := FromValidator(err, "invalid payload")
	assert.Equal(t, ErrValidation.Code, appErr.Code)
	assert.Equal(t, "invalid payload", appErr.Message)
	require.Len(t, appErr.Fields, 3)

	byField := map[string]string{}
	for _, f := range appErr.Fields {
		byField[f.Field] = f.Message
	}
	assert.Equal(t, "is required", byField["Name"])
	assert.Equal(t, "must be a valid email address", byField["Email"])
	assert.Equal(t, "must be 5 or more", byField["Age"])
}

func TestFromValidatorKeepsPlainErrors(t *testing.T) {
	appErr := FromValidator(fmt.Errorf("malformed body"), "invalid payload")
	assert.Equal(t, ErrValidation.Code, appErr.Code)
	assert.Equal(t, "invalid payload", appErr.Message)
	assert.Empty(t, appErr.Fields)
}
