package auth

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"aidanwoods.dev/go-paseto"
	"golang.org/x/crypto/hkdf"
)

// keyPurpose is the HKDF info string. Changing the version suffix rotates
// every key of that kind.
type keyPurpose string

const purposeCookieCache keyPurpose = "session-cookie-cache-v1"

const derivedKeyLength = 32

var errEmptySecret = errors.New("auth secret is empty")

// deriveKey expands AUTH_SECRET into an independent key per purpose.
func deriveKey(secret []byte, purpose keyPurpose) ([]byte, error) {
	if len(secret) == 0 {
		return nil, errEmptySecret
	}
	key := make([]byte, derivedKeyLength)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(purpose)), key); err != nil {
		return nil, fmt.Errorf("derive %s key: %w", purpose, err)
	}
	return key, nil
}

func deriveSymmetricKey(secret []byte, purpose keyPurpose) (paseto.V4SymmetricKey, error) {
	raw, err := deriveKey(secret, purpose)
	if err != nil {
		return paseto.V4SymmetricKey{}, err
	}
	key, err := paseto.V4SymmetricKeyFromBytes(raw)
	if err != nil {
		return paseto.V4SymmetricKey{}, fmt.Errorf("%s key: %w", purpose, err)
	}
	return key, nil
}
