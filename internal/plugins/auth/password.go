package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// --- Password Hashing ---
//
// New hashes are argon2id in PHC format:
//
//	$argon2id$v=19$m=65536,t=3,p=4$<salt>$<hash>
//
// Accounts carried over from the previous backend hold bcrypt hashes
// ($2a$/$2b$/$2y$). Those still verify; they are never produced.

const (
	argonPrefix  = "$argon2id$"
	argonKeyLen  = 32
	argonSaltLen = 16

	// Upper bounds applied when decoding a stored hash, so a corrupted or
	// hostile row can't make a single verify allocate gigabytes.
	maxArgonMemory  = 1 << 20 // 1 GiB in KiB
	maxArgonTime    = 16
	maxArgonKeyLen  = 128
	minArgonKeyLen  = 16
	maxArgonThreads = 64
)

var bcryptPrefixes = []string{"$2a$", "$2b$", "$2y$"}

// HashParams are the argon2id cost parameters for new hashes.
type HashParams struct {
	MemoryKiB  uint32
	Iterations uint32
	Threads    uint8
}

// DefaultHashParams follow the OWASP argon2id recommendation.
var DefaultHashParams = HashParams{MemoryKiB: 64 * 1024, Iterations: 3, Threads: 4}

// PasswordHasher hashes and verifies passwords. Safe for concurrent use.
type PasswordHasher struct {
	params HashParams
}

// NewPasswordHasher creates a hasher producing argon2id hashes with params.
func NewPasswordHasher(params HashParams) *PasswordHasher {
	return &PasswordHasher{params: params}
}

// Hash creates a salted argon2id hash of password. Two calls with the same
// input give different output. The only failure is the system RNG failing.
func (h *PasswordHasher) Hash(password string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	p := h.params
	hash := argon2.IDKey([]byte(password), salt, p.Iterations, p.MemoryKiB, p.Threads, argonKeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.MemoryKiB, p.Iterations, p.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// Verify checks password against an argon2id or bcrypt hash in constant
// time. Any malformed or unrecognized hash string yields false.
func (h *PasswordHasher) Verify(password, encoded string) bool {
	switch {
	case strings.HasPrefix(encoded, argonPrefix):
		return verifyArgon2id(password, encoded)
	case isBcryptHash(encoded):
		return bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password)) == nil
	default:
		return false
	}
}

// IsPasswordHash reports whether s is in a hash format Verify understands.
// Anything else stored in a credential column is treated as plaintext.
func IsPasswordHash(s string) bool {
	return strings.HasPrefix(s, argonPrefix) || isBcryptHash(s)
}

func isBcryptHash(s string) bool {
	for _, p := range bcryptPrefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

type argonParams struct {
	memory  uint32
	time    uint32
	threads uint8
}

func verifyArgon2id(password, encoded string) bool {
	salt, expected, params, err := decodePHC(encoded)
	if err != nil {
		return false
	}

	computed := argon2.IDKey([]byte(password), salt, params.time, params.memory, params.threads, uint32(len(expected)))
	return subtle.ConstantTimeCompare(expected, computed) == 1
}

// decodePHC parses an argon2id PHC string into its components and rejects
// parameters outside sane bounds.
func decodePHC(encoded string) (salt, hash []byte, params argonParams, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return nil, nil, params, fmt.Errorf("invalid PHC hash format")
	}
	if parts[1] != "argon2id" {
		return nil, nil, params, fmt.Errorf("unsupported algorithm: %s", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, nil, params, fmt.Errorf("parsing version: %w", err)
	}
	if version != argon2.Version {
		return nil, nil, params, fmt.Errorf("unsupported argon2 version %d", version)
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.memory, &params.time, &params.threads); err != nil {
		return nil, nil, params, fmt.Errorf("parsing parameters: %w", err)
	}
	if params.memory == 0 || params.memory > maxArgonMemory ||
		params.time == 0 || params.time > maxArgonTime ||
		params.threads == 0 || params.threads > maxArgonThreads {
		return nil, nil, params, fmt.Errorf("argon2 parameters out of range")
	}

	salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, params, fmt.Errorf("decoding salt: %w", err)
	}
	if len(salt) == 0 {
		return nil, nil, params, fmt.Errorf("empty salt")
	}

	hash, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, nil, params, fmt.Errorf("decoding hash: %w", err)
	}
	if len(hash) < minArgonKeyLen || len(hash) > maxArgonKeyLen {
		return nil, nil, params, fmt.Errorf("hash length %d out of range", len(hash))
	}

	return salt, hash, params, nil
}

// --- Admin secret ---

// AdminSecret is the stored secondary ("admin") password in one of two
// states. It is a closed set: HashedSecret or LegacySecret.
//
// A LegacySecret can only become a HashedSecret (see LegacySecret.Migrate);
// nothing turns a hash back into plaintext.
type AdminSecret interface {
	adminSecret()
}

// HashedSecret holds an argon2id or bcrypt hash.
type HashedSecret string

// LegacySecret holds a plaintext value written before hashing was enforced.
type LegacySecret string

func (HashedSecret) adminSecret() {}
func (LegacySecret) adminSecret() {}

// ParseAdminSecret classifies a stored admin_password_hash value by format.
func ParseAdminSecret(stored string) AdminSecret {
	if IsPasswordHash(stored) {
		return HashedSecret(stored)
	}
	return LegacySecret(stored)
}

// Matches compares candidate with the plaintext in constant time.
func (s LegacySecret) Matches(candidate string) bool {
	return subtle.ConstantTimeCompare([]byte(s), []byte(candidate)) == 1
}

// Migrate hashes the plaintext, producing the value that must replace it.
func (s LegacySecret) Migrate(h *PasswordHasher) (HashedSecret, error) {
	hash, err := h.Hash(string(s))
	if err != nil {
		return "", err
	}
	return HashedSecret(hash), nil
}
