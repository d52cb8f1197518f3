package auth

import (
	"errors"
	"testing"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("rahasia123")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if hash == "rahasia123" {
		t.Fatal("hash equals the plain password")
	}

	if err := CheckPassword(hash, "rahasia123"); err != nil {
		t.Errorf("CheckPassword with right password failed: %v", err)
	}
	if err := CheckPassword(hash, "salah"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("CheckPassword with wrong password = %v, want ErrInvalidCredentials", err)
	}
}

func TestHashPassword_TooShort(t *testing.T) {
	if _, err := HashPassword("abc"); err == nil {
		t.Error("expected error for short password")
	}
}
