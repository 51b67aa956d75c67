package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// AlgPBKDF2SHA256 tags credentials produced by Hasher.
	AlgPBKDF2SHA256 = "pbkdf2_sha256"

	// MinIterations is the lowest work factor Hash will use.
	MinIterations     = 100_000
	DefaultIterations = 210_000

	saltLen = 16
	keyLen  = 32
)

// Hasher derives and verifies salted PBKDF2-HMAC-SHA256 password credentials.
// Credentials are serialized as "pbkdf2_sha256$<iterations>$<salt>$<key>" so
// that verification needs no external state and old work factors keep working.
type Hasher struct {
	Iterations int
}

// NewHasher returns a Hasher; iterations below MinIterations are raised to it.
func NewHasher(iterations int) *Hasher {
	if iterations < MinIterations {
		iterations = MinIterations
	}
	return &Hasher{Iterations: iterations}
}

func (h *Hasher) iterations() int {
	if h == nil || h.Iterations < MinIterations {
		return DefaultIterations
	}
	return h.Iterations
}

// Hash returns a new credential for plaintext with a fresh random salt.
func (h *Hasher) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", fmt.Errorf("password is empty")
	}
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	iter := h.iterations()
	key := pbkdf2.Key([]byte(plaintext), salt, iter, keyLen, sha256.New)

	return strings.Join([]string{
		AlgPBKDF2SHA256,
		strconv.Itoa(iter),
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	}, "$"), nil
}

// Verify reports whether plaintext matches credential. Malformed credentials
// never match. Legacy bcrypt credentials are accepted.
func (h *Hasher) Verify(plaintext, credential string) bool {
	if plaintext == "" || credential == "" {
		return false
	}
	if isBcrypt(credential) {
		return bcrypt.CompareHashAndPassword([]byte(credential), []byte(plaintext)) == nil
	}

	iter, salt, want, ok := parsePBKDF2(credential)
	if !ok {
		return false
	}
	got := pbkdf2.Key([]byte(plaintext), salt, iter, len(want), sha256.New)
	return subtle.ConstantTimeCompare(got, want) == 1
}

// NeedsRehash reports whether credential should be replaced by a fresh Hash:
// it is bcrypt, malformed, or uses fewer iterations than h.
func (h *Hasher) NeedsRehash(credential string) bool {
	if isBcrypt(credential) {
		return true
	}
	iter, _, _, ok := parsePBKDF2(credential)
	return !ok || iter < h.iterations()
}

// DummyVerify burns roughly the cost of one Verify so that unknown usernames
// take as long to reject as wrong passwords.
func (h *Hasher) DummyVerify(plaintext string) {
	salt := make([]byte, saltLen)
	_ = pbkdf2.Key([]byte(plaintext), salt, h.iterations(), keyLen, sha256.New)
}

func isBcrypt(credential string) bool {
	return strings.HasPrefix(credential, "$2a$") ||
		strings.HasPrefix(credential, "$2b$") ||
		strings.HasPrefix(credential, "$2y$")
}

func parsePBKDF2(credential string) (iter int, salt, key []byte, ok bool) {
	parts := strings.Split(credential, "$")
	if len(parts) != 4 || parts[0] != AlgPBKDF2SHA256 {
		return 0, nil, nil, false
	}
	iter, err := strconv.Atoi(parts[1])
	if err != nil || iter <= 0 {
		return 0, nil, nil, false
	}
	salt, err = base64.RawStdEncoding.DecodeString(parts[2])
	if err != nil || len(salt) == 0 {
		return 0, nil, nil, false
	}
	key, err = base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil || len(key) == 0 {
		return 0, nil, nil, false
	}
	return iter, salt, key, true
}
