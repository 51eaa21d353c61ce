package initialization

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// GenerateMasterKey returns a fresh base64 encoded 32 byte key for
// TOKEN_MASTER_KEY.
func GenerateMasterKey() (string, error) {
	var key [32]byte
	if _, err := rand.Read(key[:]); err != nil {
		return "", fmt.Errorf("failed to generate master key: %w", err)
	}

	return base64.StdEncoding.EncodeToString(key[:]), nil
}
