package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindValidation, KindOf(New(KindValidation, "bad input")))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))

	wrapped := fmt.Errorf("handler: %w", New(KindNotFound, "missing"))
	assert.Equal(t, KindNotFound, KindOf(wrapped))
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, 400, StatusCode(New(KindValidation, "")))
	assert.Equal(t, 400, StatusCode(New(KindInsufficientSupply, "")))
	assert.Equal(t, 400, StatusCode(New(KindInsufficientBalance, "")))
	assert.Equal(t, 403, StatusCode(New(KindAuthorization, "")))
	assert.Equal(t, 404, StatusCode(New(KindNotFound, "")))
	assert.Equal(t, 502, StatusCode(New(KindLedger, "")))
	assert.Equal(t, 500, StatusCode(Consistency("0xabc", errors.New("db down"))))
	assert.Equal(t, 500, StatusCode(errors.New("plain")))
}

func TestConsistency_CarriesTxRef(t *testing.T) {
	cause := errors.New("constraint violated")
	err := Consistency("0xdeadbeef", cause)

	var ae *Error
	require.ErrorAs(t, error(err), &ae)
	assert.Equal(t, "0xdeadbeef", ae.TxRef)
	assert.ErrorIs(t, err, cause)
}
