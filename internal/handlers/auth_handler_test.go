package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/velora-app/auth-service/internal/config"
	"github.com/velora-app/auth-service/internal/handlers"
	"github.com/velora-app/auth-service/internal/models"
	"github.com/velora-app/auth-service/internal/repository"
	"github.com/velora-app/auth-service/internal/routes"
	"github.com/velora-app/auth-service/internal/services"
)

type memoryUserStore struct {
	mu    sync.Mutex
	users []*models.User
}

func (s *memoryUserStore) FindByIdentifier(_ context.Context, identifier string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == identifier || u.Username == identifier {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memoryUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memoryUserStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email || u.Username == user.Username {
			return repository.ErrDuplicate
		}
	}
	cp := *user
	s.users = append(s.users, &cp)
	return nil
}

func (s *memoryUserStore) LinkGoogle(_ context.Context, id uuid.UUID, googleID, avatar string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == id {
			sub := googleID
			u.GoogleID = &sub
			if u.Avatar == "" {
				u.Avatar = avatar
			}
			return nil
		}
	}
	return repository.ErrNotFound
}

type stubVerifier struct {
	claims *services.GoogleIDClaims
	err    error
}

func (v *stubVerifier) VerifyToken(idToken, clientID string) (*services.GoogleIDClaims, error) {
	if v.err != nil {
		return nil, v.err
	}
	return v.claims, nil
}

func newTestApp(t *testing.T, verifier services.GoogleVerifier) *fiber.App {
	t.Helper()

	cfg := &config.Config{
		JWTSecret:      "test-secret",
		JWTExpiry:      time.Hour,
		GoogleClientID: "client-123",
	}
	if verifier == nil {
		verifier = &stubVerifier{}
	}

	svc := services.NewAuthService(&memoryUserStore{}, verifier, cfg)
	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler})
	routes.Setup(app, cfg, handlers.NewAuthHandler(svc), handlers.NewHealthHandler())
	return app
}

func postJSON(t *testing.T, app *fiber.App, path string, body any) *http.Response {
	t.Helper()

	b, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()

	var m map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&m))
	return m
}

func signupBody() map[string]any {
	return map[string]any{
		"email":         "a@x.com",
		"username":      "alice",
		"password":      "longpass1",
		"agreedToTerms": true,
	}
}

func TestSignupHandler(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, nil)

	resp := postJSON(t, app, "/api/auth/signup", signupBody())
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "User created successfully", body["message"])
	userID, ok := body["userId"].(string)
	require.True(t, ok)
	_, err := uuid.Parse(userID)
	assert.NoError(t, err)

	// Either colliding field yields the same combined message.
	dup := signupBody()
	dup["username"] = "alice2"
	resp = postJSON(t, app, "/api/auth/signup", dup)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Email or username already exists", decodeBody(t, resp)["message"])
}

func TestSignupHandler_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(map[string]any)
		message string
	}{
		{"missing email", func(m map[string]any) { m["email"] = "" }, "All fields are required"},
		{"missing username", func(m map[string]any) { delete(m, "username") }, "All fields are required"},
		{"missing password", func(m map[string]any) { m["password"] = "" }, "All fields are required"},
		{"terms not agreed", func(m map[string]any) { m["agreedToTerms"] = false }, "You must agree to the terms"},
		{"short password", func(m map[string]any) { m["password"] = "short1" }, "Password must be at least 8 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			app := newTestApp(t, nil)
			body := signupBody()
			tt.mutate(body)

			resp := postJSON(t, app, "/api/auth/signup", body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, tt.message, decodeBody(t, resp)["message"])
		})
	}
}

func TestLoginHandler(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, nil)
	resp := postJSON(t, app, "/api/auth/signup", signupBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = postJSON(t, app, "/api/auth/login", map[string]any{
		"identifier": "alice",
		"password":   "longpass1",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.NotEmpty(t, body["token"])
	user, ok := body["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "alice", user["username"])
	assert.Equal(t, "a@x.com", user["email"])
	assert.NotContains(t, user, "password")
	assert.NotContains(t, user, "avatar")

	resp = postJSON(t, app, "/api/auth/login", map[string]any{"identifier": "alice"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Email/username and password are required", decodeBody(t, resp)["message"])
}

func TestLoginHandler_EnumerationResistance(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, nil)
	resp := postJSON(t, app, "/api/auth/signup", signupBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	readBody := func(identifier, password string) (int, string) {
		resp := postJSON(t, app, "/api/auth/login", map[string]any{
			"identifier": identifier,
			"password":   password,
		})
		raw, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, string(raw)
	}

	wrongPwStatus, wrongPwBody := readBody("alice", "wrongpass")
	unknownStatus, unknownBody := readBody("nobody", "longpass1")

	assert.Equal(t, http.StatusUnauthorized, wrongPwStatus)
	assert.Equal(t, http.StatusUnauthorized, unknownStatus)
	assert.Equal(t, wrongPwBody, unknownBody, "wrong password and unknown user must be indistinguishable")
}

func TestGoogleHandler(t *testing.T) {
	t.Parallel()

	verifier := &stubVerifier{claims: &services.GoogleIDClaims{
		Iss:     "https://accounts.google.com",
		Sub:     "sub-12345",
		Aud:     "client-123",
		Exp:     time.Now().Add(time.Hour).Unix(),
		Email:   "john@gmail.com",
		Name:    "John Doe",
		Picture: "https://example.com/avatar.png",
	}}
	app := newTestApp(t, verifier)

	resp := postJSON(t, app, "/api/auth/google", map[string]any{"token": ""})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Token is required", decodeBody(t, resp)["message"])

	resp = postJSON(t, app, "/api/auth/google", map[string]any{"token": "id-token"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.NotEmpty(t, body["token"])
	user, ok := body["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "john_doe", user["username"])
	assert.Equal(t, "john@gmail.com", user["email"])
	assert.Equal(t, "https://example.com/avatar.png", user["avatar"])
}

func TestGoogleHandler_VerificationFailure(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, &stubVerifier{err: assert.AnError})

	resp := postJSON(t, app, "/api/auth/google", map[string]any{"token": "bad-token"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Invalid Google token", decodeBody(t, resp)["message"])
}

func TestVerifyHandler(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, nil)
	resp := postJSON(t, app, "/api/auth/signup", signupBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = postJSON(t, app, "/api/auth/login", map[string]any{
		"identifier": "a@x.com",
		"password":   "longpass1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token, ok := decodeBody(t, resp)["token"].(string)
	require.True(t, ok)

	resp = postJSON(t, app, "/api/auth/verify", map[string]any{"token": token})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, true, body["valid"])
	user, ok := body["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "alice", user["username"])
	assert.Equal(t, "a@x.com", user["email"])
	assert.NotEmpty(t, user["userId"])

	resp = postJSON(t, app, "/api/auth/verify", map[string]any{"token": token + "tampered"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body = decodeBody(t, resp)
	assert.Equal(t, false, body["valid"])
	assert.Equal(t, "Invalid token", body["message"])

	resp = postJSON(t, app, "/api/auth/verify", map[string]any{})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body = decodeBody(t, resp)
	assert.Equal(t, false, body["valid"])
	assert.Equal(t, "No token provided", body["message"])
}

func TestVerifyHandler_MalformedBody(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/verify", bytes.NewReader([]byte("{not-json")))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, false, body["valid"])
	assert.Equal(t, "No token provided", body["message"])
}

func TestMethodNotAllowed(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, nil)

	for _, path := range []string{"/api/auth/signup", "/api/auth/login", "/api/auth/google", "/api/auth/verify"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode, path)
		assert.Equal(t, "Method not allowed", decodeBody(t, resp)["message"], path)
	}
}

func TestMeHandler(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, nil)
	resp := postJSON(t, app, "/api/auth/signup", signupBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = postJSON(t, app, "/api/auth/login", map[string]any{
		"identifier": "alice",
		"password":   "longpass1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token, ok := decodeBody(t, resp)["token"].(string)
	require.True(t, ok)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	meResp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, meResp.StatusCode)
	body := decodeBody(t, meResp)
	assert.Equal(t, "alice", body["username"])
	assert.Equal(t, "a@x.com", body["email"])

	req = httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	noAuth, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, noAuth.StatusCode)
}
