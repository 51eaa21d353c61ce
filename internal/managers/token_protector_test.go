package managers

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProtector(t *testing.T, purpose string) *tokenProtector {
	t.Helper()

	p, err := NewTokenProtector(bytes.Repeat([]byte{7}, masterKeySize), purpose)
	require.NoError(t, err)

	return p
}

func TestTokenProtector_RoundTrip(t *testing.T) {
	p := newTestProtector(t, LinkedAccountTokenPurpose)

	inputs := []string{
		"1//0gRefreshTokenValue",
		"ya29.a0AfH6SMB",
		"ñandú 🗓",
		strings.Repeat("x", 4096),
	}

	for _, in := range inputs {
		protected := p.Protect(in)

		assert.NotEmpty(t, protected)
		assert.NotEqual(t, in, protected)
		assert.Equal(t, in, p.Unprotect(protected))
	}
}

func TestTokenProtector_EmptyInput(t *testing.T) {
	p := newTestProtector(t, LinkedAccountTokenPurpose)

	assert.Equal(t, "", p.Protect(""))
	assert.Equal(t, "", p.Unprotect(""))
}

func TestTokenProtector_FreshNoncePerCall(t *testing.T) {
	p := newTestProtector(t, LinkedAccountTokenPurpose)

	assert.NotEqual(t, p.Protect("same"), p.Protect("same"))
}

func TestTokenProtector_UnprotectFailsOpen(t *testing.T) {
	p := newTestProtector(t, LinkedAccountTokenPurpose)

	protected := p.Protect("secret")
	raw, err := base64.RawURLEncoding.DecodeString(protected)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xff
	corrupted := base64.RawURLEncoding.EncodeToString(raw)

	tests := []struct {
		name  string
		input string
	}{
		{name: "corrupted ciphertext", input: corrupted},
		{name: "legacy plaintext", input: "plain-refresh-token"},
		{name: "not base64", input: "***"},
		{name: "too short", input: "AAAA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.input, p.Unprotect(tt.input))
		})
	}
}

func TestTokenProtector_PurposeIsolation(t *testing.T) {
	tokens := newTestProtector(t, LinkedAccountTokenPurpose)
	other := newTestProtector(t, "mi-cuatri.SomethingElse.v1")

	protected := tokens.Protect("secret")

	assert.Equal(t, protected, other.Unprotect(protected))
	assert.Equal(t, "secret", tokens.Unprotect(protected))
}

func TestTokenProtector_KeyIsolation(t *testing.T) {
	p := newTestProtector(t, LinkedAccountTokenPurpose)

	rotated, err := NewTokenProtector(bytes.Repeat([]byte{9}, masterKeySize), LinkedAccountTokenPurpose)
	require.NoError(t, err)

	protected := p.Protect("secret")
	assert.Equal(t, protected, rotated.Unprotect(protected))
}

func TestNewTokenProtector_Validation(t *testing.T) {
	_, err := NewTokenProtector([]byte("short"), LinkedAccountTokenPurpose)
	assert.Error(t, err)

	_, err = NewTokenProtector(bytes.Repeat([]byte{1}, masterKeySize), "")
	assert.Error(t, err)

	_, err = NewTokenProtectorFromBase64("not base64!", LinkedAccountTokenPurpose)
	assert.Error(t, err)

	key := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{1}, masterKeySize))
	p, err := NewTokenProtectorFromBase64(key, LinkedAccountTokenPurpose)
	require.NoError(t, err)
	assert.Equal(t, "v", p.Unprotect(p.Protect("v")))
}
