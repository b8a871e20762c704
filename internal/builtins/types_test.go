package builtins

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsBuiltinType(t *testing.T) {
	for _, name := range []string{"bool", "i64", "f64", "str", "object", "list", "tuple", "any"} {
		assert.True(t, IsBuiltinType(name), name)
	}
	assert.False(t, IsBuiltinType("U256"))
	assert.False(t, IsBuiltinType(""))
}

func TestDTypeClasses(t *testing.T) {
	assert.True(t, IsNumeric(Int))
	assert.True(t, IsNumeric(Float))
	assert.False(t, IsNumeric(Bool))

	assert.True(t, IsScalar(String))
	assert.False(t, IsScalar(Object))
	assert.False(t, IsScalar(List))

	assert.Equal(t, "?", Unknown.String())
	assert.Equal(t, "f64", Float.String())
}
