package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"gobfda/domain/core"
)

func TestCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"config", core.NewConfigError("n_min", "too small"), CodeConfigInvalid},
		{"range", core.NewRangeError("n.max %d beyond %d", 90, 80), CodeAnalysisRange},
		{"ambiguous", fmt.Errorf("ssd: %w", core.ErrAmbiguousHypothesis), CodeAmbiguousHypothesis},
		{"target", core.ErrTargetNotReached, CodeTargetNotReached},
		{"not found", core.NewNotFoundError("simulation", "abc"), CodeNotFound},
		{"numeric", core.NewNumericError(10, stderrors.New("nan")), CodeNumeric},
		{"plain", stderrors.New("boom"), CodeInternalError},
		{"app error", StorageError("write failed", stderrors.New("disk")), CodeStorage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CodeFor(tt.err))
		})
	}
	assert.Equal(t, "", CodeFor(nil))
}

func TestWrap_KeepsDomainCode(t *testing.T) {
	err := Wrap(core.NewConfigError("B", "must be > 0"), "loading sim.yaml")
	assert.Equal(t, CodeConfigInvalid, GetCode(err))
	assert.True(t, core.IsConfigError(err))
	assert.Contains(t, err.Error(), "loading sim.yaml")

	assert.Nil(t, Wrap(nil, "nothing"))
	assert.Equal(t, "UNKNOWN", GetCode(stderrors.New("x")))
}

func TestWithCode(t *testing.T) {
	err := WithCode(CodeInvalidInput, stderrors.New("bad id"))
	assert.Equal(t, CodeInvalidInput, GetCode(err))
	var appErr *AppError
	assert.True(t, stderrors.As(err, &appErr))

	recoded := WithCode(CodeNotFound, NotFound("simulation"))
	assert.Equal(t, CodeNotFound, GetCode(recoded))
	assert.Equal(t, "simulation not found", recoded.Error())
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(CodeConfigInvalid))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(CodeAnalysisRange))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(CodeNotFound))
	assert.Equal(t, http.StatusUnprocessableEntity, HTTPStatus(CodeTargetNotReached))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(CodeNumeric))
}
