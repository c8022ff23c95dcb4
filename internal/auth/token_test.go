package auth

import (
	"testing"

	"github.com/spec-kit/servicedesk/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", 15)

	token, expiresAt, err := tm.GenerateToken("user-1", domain.RoleTechnician)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if expiresAt.IsZero() {
		t.Fatal("expected a non-zero expiry")
	}

	claims, err := tm.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.SubjectID != "user-1" {
		t.Errorf("SubjectID = %q, want %q", claims.SubjectID, "user-1")
	}
	if claims.Role != domain.RoleTechnician {
		t.Errorf("Role = %q, want %q", claims.Role, domain.RoleTechnician)
	}
}

func TestParseTokenWrongSecret(t *testing.T) {
	token, _, err := NewTokenManager("secret-a", 15).GenerateToken("user-1", domain.RoleUser)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := NewTokenManager("secret-b", 15).ParseToken(token); err == nil {
		t.Fatal("expected parse to fail with a different secret")
	}
}

func TestParseTokenGarbage(t *testing.T) {
	if _, err := NewTokenManager("secret", 15).ParseToken("not-a-token"); err == nil {
		t.Fatal("expected parse to fail")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter2hunter2", 4)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if err := ComparePassword(hash, "hunter2hunter2"); err != nil {
		t.Errorf("ComparePassword with correct password: %v", err)
	}
	if err := ComparePassword(hash, "wrong"); err == nil {
		t.Error("ComparePassword accepted a wrong password")
	}
}
