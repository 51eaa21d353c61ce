package managers

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// LinkedAccountTokenPurpose scopes protected tokens to this subsystem. Values
// protected under another purpose do not decrypt here even with the same
// master key.
const LinkedAccountTokenPurpose = "mi-cuatri.GoogleAccountTokens.v1"

const masterKeySize = 32

// tokenProtector encrypts linked-account tokens with XChaCha20-Poly1305 under
// a key derived from the master key and the purpose string.
type tokenProtector struct {
	aead    cipher.AEAD
	purpose []byte
}

func NewTokenProtector(masterKey []byte, purpose string) (*tokenProtector, error) {
	if len(masterKey) != masterKeySize {
		return nil, fmt.Errorf("invalid master key length: expected %d bytes, got %d", masterKeySize, len(masterKey))
	}

	if purpose == "" {
		return nil, fmt.Errorf("protector purpose is required")
	}

	key, err := derivePurposeKey(masterKey, purpose)
	if err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create XChaCha20-Poly1305 cipher: %w", err)
	}

	return &tokenProtector{
		aead:    aead,
		purpose: []byte(purpose),
	}, nil
}

// NewTokenProtectorFromBase64 builds a protector from a base64 encoded
// master key as found in configuration.
func NewTokenProtectorFromBase64(masterKeyBase64 string, purpose string) (*tokenProtector, error) {
	masterKey, err := decodeMasterKey(masterKeyBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode master key: %w", err)
	}

	return NewTokenProtector(masterKey, purpose)
}

// Protect returns "" for empty input so storage always holds a string.
func (p *tokenProtector) Protect(plaintext string) string {
	if plaintext == "" {
		return ""
	}

	nonce := make([]byte, p.aead.NonceSize(), p.aead.NonceSize()+len(plaintext)+p.aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		// crypto/rand does not fail on supported platforms
		panic(fmt.Sprintf("failed to read nonce: %v", err))
	}

	sealed := p.aead.Seal(nonce, nonce, []byte(plaintext), p.purpose)

	return base64.RawURLEncoding.EncodeToString(sealed)
}

// Unprotect fails open: input that is empty, not ours, corrupt or sealed
// under another key comes back verbatim. Callers that need a usable token
// learn it is garbage when the provider rejects it.
func (p *tokenProtector) Unprotect(protected string) string {
	if protected == "" {
		return protected
	}

	plaintext, err := p.open(protected)
	if err != nil {
		return protected
	}

	return string(plaintext)
}

func (p *tokenProtector) open(protected string) ([]byte, error) {
	sealed, err := base64.RawURLEncoding.DecodeString(protected)
	if err != nil {
		return nil, fmt.Errorf("invalid encoding: %w", err)
	}

	if len(sealed) < p.aead.NonceSize()+p.aead.Overhead() {
		return nil, fmt.Errorf("ciphertext too short")
	}

	nonce, ciphertext := sealed[:p.aead.NonceSize()], sealed[p.aead.NonceSize():]

	plaintext, err := p.aead.Open(nil, nonce, ciphertext, p.purpose)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}

	return plaintext, nil
}

func decodeMasterKey(base64Key string) ([]byte, error) {
	keyBytes, err := base64.StdEncoding.DecodeString(base64Key)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 encoding: %w", err)
	}

	if len(keyBytes) != masterKeySize {
		return nil, fmt.Errorf("invalid key length: expected %d bytes, got %d", masterKeySize, len(keyBytes))
	}

	return keyBytes, nil
}

func derivePurposeKey(masterKey []byte, purpose string) ([]byte, error) {
	salt := []byte("calendarlink-token-protector")
	info := []byte("purpose-" + purpose)

	kdf := hkdf.New(sha256.New, masterKey, salt, info)
	key := make([]byte, chacha20poly1305.KeySize)

	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("failed to derive purpose key: %w", err)
	}

	return key, nil
}
