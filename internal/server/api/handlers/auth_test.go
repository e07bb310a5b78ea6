package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	rec := env.doJSON(t, http.MethodPost, "/register", "", map[string]string{
		"email":    "Alice@Example.com",
		"password": "secret1",
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody(t, rec)
	assert.NotEmpty(t, body["userId"])
	assert.Equal(t, "alice@example.com", body["email"])
	assert.NotEmpty(t, body["createdAt"])
}

func TestRegisterErrors(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "taken@example.com", "secret1")

	tests := []struct {
		name       string
		payload    map[string]string
		wantStatus int
		wantCode   string
	}{
		{"missing password", map[string]string{"email": "a@b.com"}, http.StatusBadRequest, "MISSING_FIELDS"},
		{"missing email", map[string]string{"password": "secret1"}, http.StatusBadRequest, "MISSING_FIELDS"},
		{"bad email", map[string]string{"email": "not-an-email", "password": "secret1"}, http.StatusBadRequest, "INVALID_EMAIL"},
		{"weak password", map[string]string{"email": "a@b.com", "password": "abc"}, http.StatusBadRequest, "WEAK_PASSWORD"},
		{"duplicate email", map[string]string{"email": "TAKEN@example.com", "password": "secret1"}, http.StatusConflict, "EMAIL_EXISTS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.doJSON(t, http.MethodPost, "/register", "", tt.payload)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCode, errCode(t, rec))
		})
	}
}

func TestRegisterWeakPasswordDetails(t *testing.T) {
	env := newTestEnv(t)

	rec := env.doJSON(t, http.MethodPost, "/register", "", map[string]string{
		"email":    "a@b.com",
		"password": "abc",
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	inner := decodeBody(t, rec)["error"].(map[string]any)
	details, ok := inner["details"].([]any)
	require.True(t, ok)
	assert.Contains(t, details, "must be at least 6 characters long")
	assert.Contains(t, details, "must contain a number")
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	userID := env.register(t, "alice@example.com", "secret1")

	rec := env.doJSON(t, http.MethodPost, "/login", "", map[string]string{
		"email":    "ALICE@example.com",
		"password": "secret1",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, userID, body["userId"])
	assert.NotEmpty(t, body["token"])
	assert.NotEmpty(t, body["refreshToken"])
}

func TestLoginFailures(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice@example.com", "secret1")

	recUnknown := env.doJSON(t, http.MethodPost, "/login", "", map[string]string{
		"email": "nobody@example.com", "password": "secret1",
	})
	recWrongPass := env.doJSON(t, http.MethodPost, "/login", "", map[string]string{
		"email": "alice@example.com", "password": "wrong-pass1",
	})

	assert.Equal(t, http.StatusUnauthorized, recUnknown.Code)
	assert.Equal(t, http.StatusUnauthorized, recWrongPass.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", errCode(t, recUnknown))
	assert.Equal(t, "INVALID_CREDENTIALS", errCode(t, recWrongPass))
}

func TestRefresh(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice@example.com", "secret1")

	rec := env.doJSON(t, http.MethodPost, "/login", "", map[string]string{
		"email": "alice@example.com", "password": "secret1",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)

	rec = env.doJSON(t, http.MethodPost, "/refresh", "", map[string]string{
		"refreshToken": body["refreshToken"].(string),
	})
	require.Equal(t, http.StatusOK, rec.Code)
	fresh := decodeBody(t, rec)
	assert.NotEmpty(t, fresh["token"])
	assert.NotEmpty(t, fresh["refreshToken"])

	// The access token is not accepted in place of a refresh token.
	rec = env.doJSON(t, http.MethodPost, "/refresh", "", map[string]string{
		"refreshToken": body["token"].(string),
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "WRONG_TOKEN_KIND", errCode(t, rec))

	rec = env.doJSON(t, http.MethodPost, "/refresh", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "MISSING_FIELDS", errCode(t, rec))
}

func TestMe(t *testing.T) {
	env := newTestEnv(t)
	userID := env.register(t, "alice@example.com", "secret1")
	token := env.login(t, "alice@example.com", "secret1")

	rec := env.do(t, http.MethodGet, "/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, userID, body["userId"])
	assert.Equal(t, "alice@example.com", body["email"])
	assert.NotEmpty(t, body["createdAt"])
	assert.NotEmpty(t, body["updatedAt"])

	// The password hash must never appear in any response.
	assert.NotContains(t, rec.Body.String(), "$2a$")
}

func TestMeUnauthorized(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "MISSING_AUTH_HEADER", errCode(t, rec))

	rec = env.do(t, http.MethodGet, "/me", "not.a.token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_TOKEN", errCode(t, rec))
}
