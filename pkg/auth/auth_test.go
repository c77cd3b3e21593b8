package auth

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/arnavshah/duty-roster-go/pkg/config"
	"github.com/arnavshah/duty-roster-go/pkg/database"
)

func newAuth() *Authenticator {
	return New(config.AuthConfig{
		JWTSecret:       "jwt-secret",
		APIMasterSecret: "master-secret",
		TokenTTL:        time.Hour,
		AdminUsername:   "root",
		AdminPassword:   "s3cret",
	}).WithCost(bcrypt.MinCost)
}

func TestToken_RoundTrip(t *testing.T) {
	a := newAuth()

	token, err := a.CreateToken("root")
	require.NoError(t, err)

	claims, err := a.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "root", claims.Username)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestToken_Rejected(t *testing.T) {
	a := newAuth()

	other := New(config.AuthConfig{JWTSecret: "other"})
	foreign, err := other.CreateToken("root")
	require.NoError(t, err)
	_, err = a.VerifyToken(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := jwt.NewWithClaims(jwtAlgorithm, &Claims{
		Username: "root",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	signed, err := expired.SignedString([]byte("jwt-secret"))
	require.NoError(t, err)
	_, err = a.VerifyToken(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = a.VerifyToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHash(t *testing.T) {
	a := newAuth()
	hash, err := a.HashPassword("pw")
	require.NoError(t, err)
	assert.True(t, CheckPasswordHash("pw", hash))
	assert.False(t, CheckPasswordHash("nope", hash))
}

func TestHMACKey(t *testing.T) {
	a := newAuth()

	key := a.GenerateHMACKey("parish-42")
	userID, err := a.VerifyHMACKey(key)
	require.NoError(t, err)
	assert.Equal(t, "parish-42", userID)

	for _, bad := range []string{"", "no-dot", "parish-42.deadbeef", ".abc", key + ".x"} {
		_, err := a.VerifyHMACKey(bad)
		assert.ErrorIs(t, err, ErrInvalidKey, bad)
	}

	other := New(config.AuthConfig{APIMasterSecret: "different"})
	_, err = other.VerifyHMACKey(key)
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestKeyPreview(t *testing.T) {
	assert.Equal(t, "short", KeyPreview("short"))
	assert.Equal(t, "abcdefghijkl...", KeyPreview("abcdefghijklmnop"))
}

func TestEnsureAdminAndLogin(t *testing.T) {
	db, err := database.InitDB(config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "roster.db")}, zap.NewNop())
	require.NoError(t, err)
	a := newAuth()
	ctx := context.Background()

	require.NoError(t, a.EnsureAdminExists(ctx, db, zap.NewNop()))
	require.NoError(t, a.EnsureAdminExists(ctx, db, zap.NewNop()))

	var users []database.MasterUser
	require.NoError(t, db.Find(&users).Error)
	require.Len(t, users, 1)
	assert.Equal(t, "root", users[0].Username)

	token, err := a.Login(ctx, db, "root", "s3cret")
	require.NoError(t, err)
	claims, err := a.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "root", claims.Username)

	_, err = a.Login(ctx, db, "root", "wrong")
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = a.Login(ctx, db, "ghost", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyAPIKey(t *testing.T) {
	db, err := database.InitDB(config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "roster.db")}, zap.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	stored := database.APIKey{Key: "k.sig", Name: "k"}
	require.NoError(t, db.Create(&stored).Error)

	got, err := VerifyAPIKey(ctx, db, "k.sig")
	require.NoError(t, err)
	require.NotNil(t, got.LastUsed)

	var reloaded database.APIKey
	require.NoError(t, db.First(&reloaded, stored.ID).Error)
	assert.NotNil(t, reloaded.LastUsed)

	_, err = VerifyAPIKey(ctx, db, "missing")
	assert.ErrorIs(t, err, ErrInvalidKey)
}
