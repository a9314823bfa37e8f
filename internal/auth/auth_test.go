package auth_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/seniorchoi/gigagig/internal/auth"
	"github.com/seniorchoi/gigagig/internal/auth/authtest"
	"github.com/seniorchoi/gigagig/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var testJWT = &config.JWTConfig{
	Secret:             "test-secret-key-for-auth-testing-32chars",
	Issuer:             "gigagig-test",
	AccessTokenExpiry:  15 * time.Minute,
	RefreshTokenExpiry: 7 * 24 * time.Hour,
}

// cheap parameters keep hashing fast in tests
var testParams = &argon2id.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func newService() (*auth.Service, *authtest.Store) {
	store := authtest.NewStore()
	return auth.NewService(store, testJWT, auth.WithHashParams(testParams)), store
}

func register(t *testing.T, svc *auth.Service, username string) *auth.AuthResponse {
	t.Helper()
	resp, err := svc.Register(context.Background(), &auth.RegisterRequest{
		Username: username,
		Email:    username + "@Example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)
	return resp
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()

	resp := register(t, svc, "sally")
	assert.Equal(t, "sally@example.com", resp.User.Email, "emails are stored lower case")
	assert.NotEqual(t, "correct horse", resp.User.PasswordHash)
	assert.Equal(t, "Bearer", resp.Tokens.TokenType)

	byName, err := svc.Login(ctx, &auth.LoginRequest{Login: "sally", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, byName.User.ID)

	byEmail, err := svc.Login(ctx, &auth.LoginRequest{Login: "SALLY@example.com", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, byEmail.User.ID)

	_, err = svc.Login(ctx, &auth.LoginRequest{Login: "sally", Password: "wrong horse"})
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	_, err = svc.Login(ctx, &auth.LoginRequest{Login: "nobody", Password: "correct horse"})
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials, "unknown users look like bad passwords")
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()
	register(t, svc, "sally")

	cases := []struct {
		name string
		req  auth.RegisterRequest
		want error
	}{
		{"short password", auth.RegisterRequest{Username: "bob", Email: "bob@example.com", Password: "short"}, auth.ErrPasswordTooShort},
		{"bad username", auth.RegisterRequest{Username: "b o b", Email: "bob@example.com", Password: "long enough"}, auth.ErrInvalidUsername},
		{"taken username", auth.RegisterRequest{Username: "sally", Email: "other@example.com", Password: "long enough"}, auth.ErrUsernameTaken},
		{"taken email", auth.RegisterRequest{Username: "sally2", Email: "SALLY@example.com", Password: "long enough"}, auth.ErrEmailAlreadyExists},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := tc.req
			_, err := svc.Register(ctx, &req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestTokens(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()
	resp := register(t, svc, "sally")

	claims, err := svc.ValidateAccessToken(resp.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID.String(), claims.UserID)
	assert.Equal(t, "sally", claims.Username)
	assert.Equal(t, "gigagig-test", claims.Issuer)

	_, err = svc.ValidateAccessToken(resp.Tokens.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrInvalidToken, "refresh tokens are not access tokens")

	_, err = svc.RefreshTokens(ctx, resp.Tokens.AccessToken)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	pair, err := svc.RefreshTokens(ctx, resp.Tokens.RefreshToken)
	require.NoError(t, err)
	_, err = svc.ValidateAccessToken(pair.AccessToken)
	assert.NoError(t, err)

	other := auth.NewService(authtest.NewStore(), &config.JWTConfig{Secret: "another-secret", AccessTokenExpiry: time.Minute})
	_, err = other.ValidateAccessToken(resp.Tokens.AccessToken)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestExpiredToken(t *testing.T) {
	claims := &auth.Claims{
		UserID: uuid.NewString(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "access",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWT.Secret))
	require.NoError(t, err)

	svc, _ := newService()
	_, err = svc.ValidateAccessToken(signed)
	assert.ErrorIs(t, err, auth.ErrTokenExpired)
}

func TestProfiles(t *testing.T) {
	ctx := context.Background()
	svc, store := newService()
	resp := register(t, svc, "sally")

	u, err := svc.UpdateProfile(ctx, resp.User.ID, &auth.ProfileRequest{AboutMe: " Guitar tutor ", ProfileImage: "https://img.example.com/s.png"})
	require.NoError(t, err)
	assert.Equal(t, "Guitar tutor", u.AboutMe)

	_, err = svc.UpdateProfile(ctx, resp.User.ID, &auth.ProfileRequest{AboutMe: strings.Repeat("a", 141)})
	assert.ErrorIs(t, err, auth.ErrAboutMeTooLong)
	_, err = svc.UpdateProfile(ctx, resp.User.ID, &auth.ProfileRequest{ProfileImage: "javascript:alert(1)"})
	assert.ErrorIs(t, err, auth.ErrInvalidImageURL)

	p, err := svc.GetPublicProfile(ctx, "sally")
	require.NoError(t, err)
	assert.Equal(t, "Guitar tutor", p.AboutMe)
	_, err = svc.GetPublicProfile(ctx, "nobody")
	assert.ErrorIs(t, err, auth.ErrUserNotFound)

	before := store.LastSeen(resp.User.ID)
	time.Sleep(2 * time.Millisecond)
	require.NoError(t, svc.TouchLastSeen(ctx, resp.User.ID))
	assert.True(t, store.LastSeen(resp.User.ID).After(before))
}

// TestProperty_Auth_TokenRoundTrip checks that any issued access token
// validates back to the user it was issued for.
func TestProperty_Auth_TokenRoundTrip(t *testing.T) {
	svc, _ := newService()
	rapid.Check(t, func(rt *rapid.T) {
		username := rapid.StringMatching(`[a-z][a-z0-9_]{2,20}`).Draw(rt, "username")
		resp, err := svc.Register(context.Background(), &auth.RegisterRequest{
			Username: username + uuid.NewString()[:8],
			Email:    uuid.NewString() + "@example.com",
			Password: rapid.StringMatching(`[A-Za-z0-9!@#]{8,24}`).Draw(rt, "password"),
		})
		if err != nil {
			rt.Fatalf("PROPERTY VIOLATION: registration failed: %v", err)
		}

		claims, err := svc.ValidateAccessToken(resp.Tokens.AccessToken)
		if err != nil {
			rt.Fatalf("PROPERTY VIOLATION: fresh access token rejected: %v", err)
		}
		if claims.UserID != resp.User.ID.String() || claims.Username != resp.User.Username {
			rt.Fatalf("PROPERTY VIOLATION: claims %s/%s do not match user %s/%s",
				claims.UserID, claims.Username, resp.User.ID, resp.User.Username)
		}
	})
}
