// Package handlertest builds gin engines with fake authentication for
// handler tests.
package handlertest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/carelink-api/internal/handler"
	"github.com/jwalitptl/carelink-api/internal/middleware"
	"github.com/jwalitptl/carelink-api/pkg/auth"
	"github.com/jwalitptl/carelink-api/pkg/validator"
)

// Tokens accepted by the fake verifier, named after the role they carry.
const (
	AdminToken     = "admin"
	PhysicianToken = "physician"
	PatientToken   = "patient"
	NoRoleToken    = "norole"
)

type verifier struct{}

func (verifier) Verify(_ context.Context, token string) (*auth.Principal, error) {
	switch token {
	case AdminToken:
		return &auth.Principal{Subject: "auth0|admin", Roles: []string{"Admin"}, Token: token}, nil
	case PhysicianToken:
		return &auth.Principal{Subject: "auth0|physician", Roles: []string{"Physician"}, Token: token}, nil
	case PatientToken:
		return &auth.Principal{Subject: "auth0|patient", Roles: []string{"Patient"}, Token: token}, nil
	case NoRoleToken:
		return &auth.Principal{Subject: "auth0|new", Token: token}, nil
	}
	return nil, errors.New("unknown token")
}

// Verifier returns a token verifier that knows the test tokens.
func Verifier() auth.TokenVerifier {
	return verifier{}
}

// Auth returns auth middleware backed by Verifier.
func Auth() *middleware.AuthMiddleware {
	return middleware.NewAuthMiddleware(verifier{})
}

// Engine mounts h behind authentication the way the router does.
func Engine(h handler.Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	_ = validator.Register()

	r := gin.New()
	api := r.Group("", Auth().Authenticate())
	h.RegisterRoutes(api)
	return r
}

// PublicEngine mounts h without authentication.
func PublicEngine(h handler.Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	_ = validator.Register()

	r := gin.New()
	h.RegisterRoutes(&r.RouterGroup)
	return r
}

// Do sends a request with an optional bearer token and JSON body.
func Do(r http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewBuffer(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
