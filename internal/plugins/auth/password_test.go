package auth

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher_RoundTrip(t *testing.T) {
	h := NewPasswordHasher(testHashParams)

	hash, err := h.Hash("StrongPass1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=1024,t=1,p=1$") {
		t.Errorf("unexpected hash format %q", hash)
	}
	if !h.Verify("StrongPass1", hash) {
		t.Error("correct password rejected")
	}
	if h.Verify("StrongPass2", hash) {
		t.Error("wrong password accepted")
	}

	again, _ := h.Hash("StrongPass1")
	if again == hash {
		t.Error("expected a fresh salt per hash")
	}
}

func TestPasswordHasher_VerifiesHashesFromOtherParams(t *testing.T) {
	old := NewPasswordHasher(HashParams{MemoryKiB: 2048, Iterations: 2, Threads: 2})
	hash, _ := old.Hash("StrongPass1")

	if !NewPasswordHasher(testHashParams).Verify("StrongPass1", hash) {
		t.Error("parameters are read from the stored hash, not the hasher")
	}
}

func TestPasswordHasher_VerifiesLegacyBcrypt(t *testing.T) {
	legacy, err := bcrypt.GenerateFromPassword([]byte("StrongPass1"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}

	h := NewPasswordHasher(testHashParams)
	if !h.Verify("StrongPass1", string(legacy)) {
		t.Error("legacy bcrypt hash rejected")
	}
	if h.Verify("WrongPass1", string(legacy)) {
		t.Error("wrong password accepted against bcrypt hash")
	}
}

func TestPasswordHasher_MalformedHashesNeverVerify(t *testing.T) {
	h := NewPasswordHasher(testHashParams)
	good, _ := h.Hash("StrongPass1")
	parts := strings.Split(good, "$")

	malformed := []string{
		"",
		"StrongPass1",
		"$argon2id$",
		"$argon2i$v=19$m=1024,t=1,p=1$" + parts[4] + "$" + parts[5],
		"$argon2id$v=18$m=1024,t=1,p=1$" + parts[4] + "$" + parts[5],
		"$argon2id$v=19$m=0,t=1,p=1$" + parts[4] + "$" + parts[5],
		"$argon2id$v=19$m=4194304,t=1,p=1$" + parts[4] + "$" + parts[5],
		"$argon2id$v=19$m=1024,t=1,p=1$$" + parts[5],
		"$argon2id$v=19$m=1024,t=1,p=1$!!!$" + parts[5],
		"$argon2id$v=19$m=1024,t=1,p=1$" + parts[4] + "$AAAA",
		"$2b$04$short",
	}
	for _, m := range malformed {
		if h.Verify("StrongPass1", m) {
			t.Errorf("malformed hash %q verified", m)
		}
	}
}

func TestIsPasswordHash(t *testing.T) {
	tests := map[string]bool{
		"$argon2id$v=19$m=1,t=1,p=1$a$b": true,
		"$2a$10$abc":                     true,
		"$2b$10$abc":                     true,
		"$2y$10$abc":                     true,
		"abc123":                         false,
		"$2x$10$abc":                     false,
		"":                               false,
	}
	for in, want := range tests {
		if got := IsPasswordHash(in); got != want {
			t.Errorf("IsPasswordHash(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestParseAdminSecret(t *testing.T) {
	if _, ok := ParseAdminSecret("abc123").(LegacySecret); !ok {
		t.Error("plaintext must parse as LegacySecret")
	}

	hash, _ := NewPasswordHasher(testHashParams).Hash("abc123")
	if _, ok := ParseAdminSecret(hash).(HashedSecret); !ok {
		t.Error("argon2id hash must parse as HashedSecret")
	}
	if _, ok := ParseAdminSecret("$2b$12$abcdefghijklmnopqrstuv").(HashedSecret); !ok {
		t.Error("bcrypt hash must parse as HashedSecret")
	}

	if (&User{}).AdminSecret() != nil {
		t.Error("missing admin password must yield nil")
	}
	empty := ""
	if (&User{AdminPassword: &empty}).AdminSecret() != nil {
		t.Error("empty admin password must yield nil")
	}
}

func TestLegacySecret_MatchesAndMigrates(t *testing.T) {
	legacy := LegacySecret("abc123")
	if !legacy.Matches("abc123") {
		t.Error("exact match rejected")
	}
	for _, wrong := range []string{"abc1234", "ABC123", "", "abc12"} {
		if legacy.Matches(wrong) {
			t.Errorf("%q matched", wrong)
		}
	}

	h := NewPasswordHasher(testHashParams)
	migrated, err := legacy.Migrate(h)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if strings.Contains(string(migrated), "abc123") {
		t.Error("migrated value contains the plaintext")
	}
	if !h.Verify("abc123", string(migrated)) {
		t.Error("migrated hash does not verify")
	}
	if _, ok := ParseAdminSecret(string(migrated)).(HashedSecret); !ok {
		t.Error("migrated value must parse back as hashed")
	}
}
