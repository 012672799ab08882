package utils_test

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-progress-api/internal/utils"
)

func TestNewValidatorReportsJSONFieldNames(t *testing.T) {
	type payload struct {
		Course    uint `json:"course" validate:"required"`
		TimeSpent *int `json:"timeSpent,omitempty" validate:"omitempty,gte=0"`
		Internal  int  `validate:"gte=1"`
	}

	negative := -1
	err := utils.NewValidator().Struct(payload{TimeSpent: &negative})

	var validationErrs validator.ValidationErrors
	require.True(t, errors.As(err, &validationErrs))

	fields := make([]string, 0, len(validationErrs))
	for _, fieldErr := range validationErrs {
		fields = append(fields, fieldErr.Field())
	}
	require.ElementsMatch(t, []string{"course", "timeSpent", "Internal"}, fields)
}
