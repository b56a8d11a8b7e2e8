package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name string `validate:"required,max=10"`
	Port string `validate:"omitempty,porttype"`
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(sample{Name: "ok"}))
	assert.Error(t, Validate(sample{}))
	assert.Error(t, Validate(sample{Name: "way too long for this field"}))
}

func TestPortTypeRule(t *testing.T) {
	for _, valid := range []string{"string", "number", "boolean", "object", "array"} {
		assert.NoError(t, Validate(sample{Name: "ok", Port: valid}), valid)
	}
	assert.Error(t, Validate(sample{Name: "ok", Port: "integer"}))
}

func TestFormatErrors(t *testing.T) {
	err := Validate(sample{Port: "integer"})
	require.Error(t, err)

	fields := FormatErrors(err)
	require.Len(t, fields, 2)
	assert.Equal(t, "name", fields[0].Field)
	assert.Equal(t, "This field is required", fields[0].Message)
	assert.Equal(t, "port", fields[1].Field)
	assert.Equal(t, "Invalid port type", fields[1].Message)
}

func TestFormatErrorsOnNonValidationError(t *testing.T) {
	assert.Empty(t, FormatErrors(assert.AnError))
}
