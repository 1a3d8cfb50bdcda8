package common

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{InvalidInput("bad"), http.StatusBadRequest},
		{AlreadyExists("dup"), http.StatusBadRequest},
		{NewValidator().Check(false, "name", "", "is required").Error(), http.StatusBadRequest},
		{NewAppError("UNAUTHORIZED", "who", ErrUnauthorized), http.StatusUnauthorized},
		{Forbidden("no"), http.StatusForbidden},
		{fmt.Errorf("wrapped: %w", NotFound("gone")), http.StatusNotFound},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, HTTPStatus(c.err), "%v", c.err)
	}
}

func TestToGRPC(t *testing.T) {
	assert.Nil(t, ToGRPC(nil))
	assert.Equal(t, codes.InvalidArgument, status.Code(ToGRPC(InvalidInput("bad"))))
	assert.Equal(t, codes.NotFound, status.Code(ToGRPC(NotFound("gone"))))
	assert.Equal(t, codes.PermissionDenied, status.Code(ToGRPC(Forbidden("no"))))
	assert.Equal(t, codes.Internal, status.Code(ToGRPC(fmt.Errorf("boom"))))
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "gone", Message(fmt.Errorf("ctx: %w", NotFound("gone"))))
	assert.Equal(t, "plain", Message(fmt.Errorf("plain")))
}

func TestValidateStruct(t *testing.T) {
	type req struct {
		Username string `validate:"required,username"`
		Slug     string `validate:"omitempty,slug"`
	}
	assert.NoError(t, ValidateStruct(req{Username: "a.b_c"}))
	err := ValidateStruct(req{Username: "a b", Slug: "no spaces"})
	assert.ErrorIs(t, err, ErrValidation)
}
