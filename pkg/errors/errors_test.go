package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataFor(t *testing.T) {
	tests := []struct {
		code     Code
		status   int
		shows    bool
		details  bool
		retrying bool
	}{
		{CodeValidation, http.StatusBadRequest, true, true, false},
		{CodeUnauthorized, http.StatusUnauthorized, true, false, false},
		{CodeForbidden, http.StatusForbidden, true, false, false},
		{CodeNotFound, http.StatusNotFound, true, false, false},
		{CodeConflict, http.StatusConflict, true, false, false},
		{CodeStateConflict, http.StatusUnprocessableEntity, true, true, false},
		{CodePolicy, http.StatusBadRequest, true, true, false},
		{CodeIdempotency, http.StatusConflict, true, true, false},
		{CodeRateLimit, http.StatusTooManyRequests, true, false, false},
		{CodeInternal, http.StatusInternalServerError, false, false, true},
		{CodeDependency, http.StatusServiceUnavailable, false, true, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			meta := MetadataFor(tt.code)
			assert.Equal(t, tt.status, meta.HTTPStatus)
			assert.Equal(t, tt.shows, meta.ShowsMessage)
			assert.Equal(t, tt.details, meta.DetailsAllowed)
			assert.Equal(t, tt.retrying, meta.Retryable)
			assert.NotEmpty(t, meta.PublicMessage)
		})
	}

	assert.Equal(t, MetadataFor(CodeInternal), MetadataFor("SOMETHING_UNKNOWN"))
}

func TestErrorText(t *testing.T) {
	assert.Equal(t, "NOT_FOUND: order not found", New(CodeNotFound, "order not found").Error())

	wrapped := Wrap(CodeDependency, stdErrors.New("dial tcp: refused"), "load cart")
	assert.Equal(t, "DEPENDENCY_ERROR: load cart: dial tcp: refused", wrapped.Error())

	assert.Equal(t, "POLICY_VIOLATION: The following products do not allow return: Lamp",
		Newf(CodePolicy, "The following products do not allow %s: %s", "return", "Lamp").Error())
}

func TestWrapKeepsCause(t *testing.T) {
	sentinel := stdErrors.New("coupon not found")
	err := fmt.Errorf("apply coupon: %w", Wrap(CodeNotFound, sentinel, "Coupon not found"))

	require.ErrorIs(t, err, sentinel)
	assert.True(t, IsCode(err, CodeNotFound))
	assert.False(t, IsCode(err, CodePolicy))
	assert.False(t, IsCode(sentinel, CodeNotFound), "untyped errors carry no code")

	typed := As(err)
	require.NotNil(t, typed)
	assert.Equal(t, "Coupon not found", typed.Message())
	assert.Nil(t, As(nil))
	assert.Nil(t, As(sentinel))
}

func TestWithDetails(t *testing.T) {
	fields := map[string]string{"quantity": "must be at least 1"}
	err := New(CodeValidation, "invalid cart").WithDetails(fields)
	assert.Equal(t, fields, err.Details())

	var missing *Error
	assert.Nil(t, missing.WithDetails(fields))
	assert.Equal(t, CodeInternal, missing.Code())
	assert.Empty(t, missing.Error())
}
