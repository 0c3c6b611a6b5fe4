package auth

import (
	"strings"
	"testing"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name       string
		password   string
		shouldFail bool
	}{
		{
			name:       "valid password",
			password:   "Secret123",
			shouldFail: false,
		},
		{
			name:       "minimum length",
			password:   "abcdef",
			shouldFail: false,
		},
		{
			name:       "too short",
			password:   "abc12",
			shouldFail: true,
		},
		{
			name:       "too long",
			password:   strings.Repeat("a", 101),
			shouldFail: true,
		},
		{
			name:       "maximum length",
			password:   strings.Repeat("a", 100),
			shouldFail: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)

			if tt.shouldFail && err == nil {
				t.Errorf("expected error, got nil")
			}
			if !tt.shouldFail && err != nil {
				t.Errorf("expected nil, got %v", err)
			}
		})
	}
}

func TestHashAndComparePassword(t *testing.T) {
	hash, err := HashPassword("Secret123")
	if err != nil {
		t.Fatalf("HashPassword() = %v, want nil", err)
	}

	if hash == "Secret123" {
		t.Fatal("hash must not equal the plaintext password")
	}

	if err := ComparePassword(hash, "Secret123"); err != nil {
		t.Errorf("ComparePassword() with correct password = %v, want nil", err)
	}

	if err := ComparePassword(hash, "WrongPassword"); err == nil {
		t.Error("ComparePassword() with wrong password should fail")
	}
}

func TestHashPassword_EmptyPassword(t *testing.T) {
	if _, err := HashPassword(""); err == nil {
		t.Error("HashPassword(\"\") should fail")
	}
}

func TestHashPassword_ProducesUniqueSalts(t *testing.T) {
	hash1, err := HashPassword("Secret123")
	if err != nil {
		t.Fatalf("HashPassword() = %v, want nil", err)
	}
	hash2, err := HashPassword("Secret123")
	if err != nil {
		t.Fatalf("HashPassword() = %v, want nil", err)
	}

	if hash1 == hash2 {
		t.Error("two hashes of the same password should differ (unique salts)")
	}
}

func TestBurnComparison_DoesNotPanic(t *testing.T) {
	BurnComparison("anything")
	BurnComparison("")
}
