package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errSentinel = errors.New("insufficient stock")

func TestWrapKeepsSentinel(t *testing.T) {
	err := Wrap(errSentinel, KindInvalidRequest, "insufficient stock for product %q", "Widget")

	assert.True(t, errors.Is(err, errSentinel))
	assert.Equal(t, KindInvalidRequest, KindOf(err))
	assert.Equal(t, `insufficient stock for product "Widget"`, MessageOf(err))
	assert.Equal(t, `insufficient stock for product "Widget": insufficient stock`, err.Error())
}

func TestKindOfWrappedError(t *testing.T) {
	err := fmt.Errorf("place order: %w", NotFound("address %d not found", 7))

	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, "address 7 not found", MessageOf(err))
}

func TestPlainErrorIsInternal(t *testing.T) {
	err := errors.New(`pq: relation "orders" does not exist`)

	assert.Equal(t, KindInternal, KindOf(err))
	assert.Equal(t, "internal server error", MessageOf(err))
	assert.Equal(t, KindInternal, KindOf(nil))
}

func TestHTTPStatus(t *testing.T) {
	tests := map[Kind]int{
		KindNotFound:       http.StatusNotFound,
		KindInvalidRequest: http.StatusBadRequest,
		KindConflict:       http.StatusConflict,
		KindUnauthorized:   http.StatusUnauthorized,
		KindForbidden:      http.StatusForbidden,
		KindUnavailable:    http.StatusServiceUnavailable,
		KindInternal:       http.StatusInternalServerError,
	}

	for kind, status := range tests {
		t.Run(kind.String(), func(t *testing.T) {
			assert.Equal(t, status, kind.HTTPStatus())
		})
	}
}
