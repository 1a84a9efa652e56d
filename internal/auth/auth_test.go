package auth

import (
	"errors"
	"testing"
	"time"
)

func newTestService(t *testing.T, ttl time.Duration) *Service {
	t.Helper()
	hash, err := HashPassword("correct-horse")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	return New(hash, "test-secret", ttl)
}

func TestLoginAndValidate(t *testing.T) {
	svc := newTestService(t, time.Hour)

	token, err := svc.Login("correct-horse")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if err := svc.Validate(token); err != nil {
		t.Errorf("valid token rejected: %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc := newTestService(t, time.Hour)

	_, err := svc.Login("wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestValidateGarbageToken(t *testing.T) {
	svc := newTestService(t, time.Hour)

	if err := svc.Validate("not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestValidateExpiredToken(t *testing.T) {
	svc := newTestService(t, -time.Minute)

	token, err := svc.Login("correct-horse")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if err := svc.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Error("expected expired token to be rejected")
	}
}

func TestValidateWrongSecret(t *testing.T) {
	svc := newTestService(t, time.Hour)
	token, err := svc.Login("correct-horse")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	hash, _ := HashPassword("correct-horse")
	other := New(hash, "different-secret", time.Hour)
	if err := other.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Error("expected token signed with another secret to be rejected")
	}
}
