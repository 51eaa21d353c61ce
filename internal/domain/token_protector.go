package domain

// TokenProtector encrypts secrets before they reach storage.
//
// Protect never returns an empty result for non-empty input and returns ""
// for empty input. Unprotect returns its input unchanged when it is empty or
// cannot be decrypted.
type TokenProtector interface {
	Protect(plaintext string) string
	Unprotect(protected string) string
}
