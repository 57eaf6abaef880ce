package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type categoryForm struct {
	Name string `json:"name" validate:"required,max=10,categoryname"`
	Role string `json:"role" validate:"omitempty,teamrole"`
}

func TestValidateStruct_CategoryName(t *testing.T) {
	assert.NoError(t, ValidateStruct(&categoryForm{Name: "AI"}))

	err := ValidateStruct(&categoryForm{Name: "   "})
	require.Error(t, err)
	assert.Equal(t, map[string]string{"name": "categoryname"}, Messages(err))

	err = ValidateStruct(&categoryForm{Name: "a/b"})
	assert.Equal(t, map[string]string{"name": "categoryname"}, Messages(err))

	err = ValidateStruct(&categoryForm{Name: "much too long"})
	assert.Equal(t, map[string]string{"name": "max"}, Messages(err))
}

func TestValidateStruct_TeamRole(t *testing.T) {
	assert.NoError(t, ValidateStruct(&categoryForm{Name: "AI", Role: "admin"}))

	err := ValidateStruct(&categoryForm{Name: "AI", Role: "root"})
	assert.Equal(t, map[string]string{"role": "teamrole"}, Messages(err))
}

func TestMessages_NonValidationError(t *testing.T) {
	assert.Equal(t, map[string]string{"_": "boom"}, Messages(errors.New("boom")))
}
