// Package crypto seals the Roblox session cookie at rest.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// defaultIterations is the OWASP minimum for PBKDF2-HMAC-SHA256.
	defaultIterations = 480_000
	saltLen           = 16
	aesKeyLen         = 32
	vaultVersion      = 1
)

// ErrWrongPassword is returned when a vault fails authentication.
var ErrWrongPassword = errors.New("crypto: wrong password or corrupted vault")

// sealed is the on-disk JSON form of a vault. Binary fields are standard
// base64.
type sealed struct {
	Version    int    `json:"version"`
	Iterations int    `json:"iterations"`
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

func aead(password string, salt []byte, iterations int) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(password), salt, iterations, aesKeyLen, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

// SealCookie encrypts cookie under password with PBKDF2-HMAC-SHA256 and
// AES-256-GCM and returns the vault JSON.
func SealCookie(cookie, password string) ([]byte, error) {
	cookie = strings.TrimSpace(cookie)
	if cookie == "" {
		return nil, errors.New("crypto: cookie must not be empty")
	}
	if password == "" {
		return nil, errors.New("crypto: password must not be empty")
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("crypto: salt: %w", err)
	}
	gcm, err := aead(password, salt, defaultIterations)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("crypto: nonce: %w", err)
	}

	enc := base64.StdEncoding.EncodeToString
	return json.MarshalIndent(sealed{
		Version:    vaultVersion,
		Iterations: defaultIterations,
		Salt:       enc(salt),
		Nonce:      enc(nonce),
		Ciphertext: enc(gcm.Seal(nil, nonce, []byte(cookie), nil)),
	}, "", "  ")
}

// OpenCookie decrypts a vault produced by SealCookie.
func OpenCookie(vault []byte, password string) (string, error) {
	if password == "" {
		return "", errors.New("crypto: password must not be empty")
	}
	var s sealed
	if err := json.Unmarshal(vault, &s); err != nil {
		return "", fmt.Errorf("crypto: parse vault: %w", err)
	}
	if s.Version != vaultVersion {
		return "", fmt.Errorf("crypto: unsupported vault version %d", s.Version)
	}
	if s.Iterations <= 0 {
		return "", fmt.Errorf("crypto: bad iteration count %d", s.Iterations)
	}

	var salt, nonce, ct []byte
	for _, f := range []struct {
		name string
		in   string
		out  *[]byte
	}{
		{"salt", s.Salt, &salt},
		{"nonce", s.Nonce, &nonce},
		{"ciphertext", s.Ciphertext, &ct},
	} {
		b, err := base64.StdEncoding.DecodeString(f.in)
		if err != nil {
			return "", fmt.Errorf("crypto: decode %s: %w", f.name, err)
		}
		*f.out = b
	}

	gcm, err := aead(password, salt, s.Iterations)
	if err != nil {
		return "", err
	}
	if len(nonce) != gcm.NonceSize() {
		return "", fmt.Errorf("crypto: nonce length %d", len(nonce))
	}
	plain, err := gcm.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", ErrWrongPassword
	}
	return string(plain), nil
}

// CookieSource says where the session cookie comes from.
type CookieSource struct {
	Cookie     string
	SealedPath string
	Password   string
}

// LoadCookie returns the plain cookie when set, otherwise opens the vault at
// SealedPath.
func LoadCookie(src CookieSource) (string, error) {
	if c := strings.TrimSpace(src.Cookie); c != "" {
		return c, nil
	}
	if src.SealedPath == "" {
		return "", errors.New("crypto: no cookie configured (set account.cookie or account.sealed_cookie_path)")
	}
	raw, err := os.ReadFile(src.SealedPath)
	if err != nil {
		return "", fmt.Errorf("crypto: read vault: %w", err)
	}
	return OpenCookie(raw, src.Password)
}
