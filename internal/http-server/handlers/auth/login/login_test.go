package login

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Shobhit2205/winisol-server/internal/http-server/model"
	resp "github.com/Shobhit2205/winisol-server/internal/lib/api/response"
	"github.com/gagliardetto/solana-go"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

const jwtSecret = "test-secret"

type fakeNonces struct {
	nonce   *model.Nonce
	deletes int
}

func (f *fakeNonces) FindNonceByPublicKey(string) (*model.Nonce, error) {
	return f.nonce, nil
}

func (f *fakeNonces) DeleteNonce(string) error {
	f.deletes++

	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(nopWriter{}, nil))
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func newKeypair(t *testing.T) (string, ed25519.PrivateKey) {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	return solana.PublicKeyFromBytes(pub).String(), priv
}

func sign(priv ed25519.PrivateKey, nonce string) string {
	sig := ed25519.Sign(priv, []byte(nonce))

	return solana.SignatureFromBytes(sig).String()
}

func post(t *testing.T, handler http.HandlerFunc, req Request) (*httptest.ResponseRecorder, Response) {
	t.Helper()

	body, err := json.Marshal(req)
	require.NoError(t, err)

	httpReq := httptest.NewRequest(http.MethodPost, "/verify-authority", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, httpReq)

	var got Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))

	return rec, got
}

func TestLogin(t *testing.T) {
	t.Parallel()

	adminKey, adminPriv := newKeypair(t)

	const nonceValue = "a1b2c3d4"

	t.Run("Success", func(t *testing.T) {
		t.Parallel()

		nonces := &fakeNonces{nonce: &model.Nonce{
			PublicKey: adminKey,
			Nonce:     nonceValue,
			ExpiresAt: time.Now().Add(time.Minute),
		}}

		handler := NewLogin(discardLogger(), nonces, adminKey, jwtSecret, time.Hour)

		rec, got := post(t, handler.New(), Request{
			PublicKey: adminKey,
			Signature: sign(adminPriv, nonceValue),
		})

		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, got.Success)
		require.NotEmpty(t, got.Token)

		// Nonce is single-use.
		assert.Equal(t, 1, nonces.deletes)

		token, err := jwt.Parse(got.Token, func(*jwt.Token) (interface{}, error) {
			return []byte(jwtSecret), nil
		})
		require.NoError(t, err)
		assert.True(t, token.Valid)
	})

	t.Run("NotTheAdminKey", func(t *testing.T) {
		t.Parallel()

		otherKey, otherPriv := newKeypair(t)

		handler := NewLogin(discardLogger(), &fakeNonces{}, adminKey, jwtSecret, time.Hour)

		rec, got := post(t, handler.New(), Request{
			PublicKey: otherKey,
			Signature: sign(otherPriv, nonceValue),
		})

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, resp.CategoryForbidden, got.Category)
	})

	t.Run("NoNonceIssued", func(t *testing.T) {
		t.Parallel()

		handler := NewLogin(discardLogger(), &fakeNonces{}, adminKey, jwtSecret, time.Hour)

		rec, got := post(t, handler.New(), Request{
			PublicKey: adminKey,
			Signature: sign(adminPriv, nonceValue),
		})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, resp.CategoryConflict, got.Category)
	})

	t.Run("ExpiredNonceIsConsumed", func(t *testing.T) {
		t.Parallel()

		nonces := &fakeNonces{nonce: &model.Nonce{
			PublicKey: adminKey,
			Nonce:     nonceValue,
			ExpiresAt: time.Now().Add(-time.Minute),
		}}

		handler := NewLogin(discardLogger(), nonces, adminKey, jwtSecret, time.Hour)

		rec, got := post(t, handler.New(), Request{
			PublicKey: adminKey,
			Signature: sign(adminPriv, nonceValue),
		})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, resp.CategoryConflict, got.Category)
		assert.Equal(t, 1, nonces.deletes)
		assert.Empty(t, got.Token)
	})

	t.Run("WrongSignature", func(t *testing.T) {
		t.Parallel()

		_, otherPriv := newKeypair(t)

		nonces := &fakeNonces{nonce: &model.Nonce{
			PublicKey: adminKey,
			Nonce:     nonceValue,
			ExpiresAt: time.Now().Add(time.Minute),
		}}

		handler := NewLogin(discardLogger(), nonces, adminKey, jwtSecret, time.Hour)

		rec, got := post(t, handler.New(), Request{
			PublicKey: adminKey,
			Signature: sign(otherPriv, nonceValue),
		})

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, resp.CategoryUnauthorized, got.Category)
		assert.Zero(t, nonces.deletes)
	})
}
