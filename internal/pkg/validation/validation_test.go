package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidAddress(t *testing.T) {
	assert.True(t, IsValidAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"))
	assert.True(t, IsValidAddress("0xAbCd1234abcd1234ABCD1234abcd1234ABCD1234"))
	assert.False(t, IsValidAddress("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"))
	assert.False(t, IsValidAddress("0x123"))
	assert.False(t, IsValidAddress("0xzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz"))
	assert.False(t, IsValidAddress(""))
}

func TestIsValidEmail(t *testing.T) {
	assert.True(t, IsValidEmail("user@example.com"))
	assert.False(t, IsValidEmail("user@"))
	assert.False(t, IsValidEmail("example.com"))
}

func TestIsValidTokenAmount(t *testing.T) {
	assert.True(t, IsValidTokenAmount(1))
	assert.True(t, IsValidTokenAmount(1000))
	assert.False(t, IsValidTokenAmount(0))
	assert.False(t, IsValidTokenAmount(-5))
}
