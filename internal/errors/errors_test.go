package appErrors_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	appErrors "github.com/unclebandit/helpflow-backend/internal/errors"
)

func TestKindOfUnwrapsChain(t *testing.T) {
	base := errors.New("connection refused")
	err := fmt.Errorf("insert: %w", appErrors.E(appErrors.KindPersistence, "messages.create", base))

	assert.Equal(t, appErrors.KindPersistence, appErrors.KindOf(err))
	assert.True(t, appErrors.Is(err, appErrors.KindPersistence))
	assert.ErrorIs(t, err, base)
	assert.Contains(t, err.Error(), "messages.create")
}

func TestKindOfProfileNotFound(t *testing.T) {
	err := fmt.Errorf("lookup: %w", appErrors.NewProfileNotFound("user_1"))
	assert.Equal(t, appErrors.KindNotFound, appErrors.KindOf(err))
	assert.Equal(t, "profile user_1 not found", errors.Unwrap(err).Error())
}

func TestKindOfPlainErrors(t *testing.T) {
	assert.Equal(t, appErrors.Kind(""), appErrors.KindOf(nil))
	assert.Equal(t, appErrors.KindUnknown, appErrors.KindOf(errors.New("boom")))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[appErrors.Kind]int{
		appErrors.KindInvalidSignature:       http.StatusBadRequest,
		appErrors.KindMissingFields:          http.StatusBadRequest,
		appErrors.KindMissingPrimaryEmail:    http.StatusBadRequest,
		appErrors.KindNotFound:               http.StatusNotFound,
		appErrors.KindForbidden:              http.StatusForbidden,
		appErrors.KindIllegalTransition:      http.StatusConflict,
		appErrors.KindPersistence:            http.StatusInternalServerError,
		appErrors.KindGenerationFailed:       http.StatusInternalServerError,
		appErrors.KindCheckoutCreationFailed: http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, appErrors.HTTPStatus(kind), "kind %s", kind)
	}
}
