package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsSentinel(t *testing.T) {
	base := New(KindBusinessRule, "product is out of stock")
	err := Wrap(base, "%s is out of stock", "Laddu")

	assert.True(t, errors.Is(err, base))
	assert.Equal(t, "Laddu is out of stock", err.Error())
	assert.Equal(t, KindBusinessRule, KindOf(err))

	outer := fmt.Errorf("create order: %w", err)
	assert.True(t, errors.Is(outer, base))
	assert.Equal(t, KindBusinessRule, KindOf(outer))
}

func TestKindStatusMapping(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:      http.StatusBadRequest,
		KindUnauthenticated: http.StatusUnauthorized,
		KindForbidden:       http.StatusForbidden,
		KindNotFound:        http.StatusNotFound,
		KindConflict:        http.StatusConflict,
		KindRateLimited:     http.StatusTooManyRequests,
		KindBusinessRule:    http.StatusBadRequest,
		KindUpstream:        http.StatusBadGateway,
		KindInternal:        http.StatusInternalServerError,
	}
	for kind, status := range cases {
		assert.Equal(t, status, kind.HTTPStatus(), kind.String())
	}
}

func TestKindOfUnknownError(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, KindInternal, KindOf(Internal(errors.New("boom"))))
}
