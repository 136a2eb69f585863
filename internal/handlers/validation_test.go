package handlers

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	appValidator "github.com/akovalyov/currex/pkg/validator"
)

func TestFormatValidationError(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: "invalid request payload",
		},
		{
			name:     "required field",
			err:      appValidator.ValidationErrors{{Field: "email", Tag: "required"}},
			expected: "email is required",
		},
		{
			name:     "email format",
			err:      appValidator.ValidationErrors{{Field: "email", Tag: "email"}},
			expected: "email must be a valid email address",
		},
		{
			name:     "password policy",
			err:      appValidator.ValidationErrors{{Field: "password", Tag: "password"}},
			expected: "password must be at least 8 characters with an upper-case letter, a lower-case letter and a digit",
		},
		{
			name:     "exact length with prettified field",
			err:      appValidator.ValidationErrors{{Field: "from_currency", Tag: "len", Param: "3"}},
			expected: "from currency must be exactly 3 characters",
		},
		{
			name:     "greater than",
			err:      appValidator.ValidationErrors{{Field: "amount", Tag: "gt", Param: "0"}},
			expected: "amount must be greater than 0",
		},
		{
			name: "multiple failures joined",
			err: appValidator.ValidationErrors{
				{Field: "email", Tag: "required"},
				{Field: "username", Tag: "max", Param: "50"},
			},
			expected: "email is required; username must be at most 50 characters",
		},
		{
			name:     "unknown tag falls back",
			err:      appValidator.ValidationErrors{{Field: "email", Tag: "uuid"}},
			expected: "email failed validation: uuid",
		},
		{
			name:     "non-validation error",
			err:      errors.New("boom"),
			expected: "invalid request payload",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, formatValidationError(tc.err))
		})
	}
}
