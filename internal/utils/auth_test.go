package utils

import (
	"testing"
	"time"

	"github.com/mendelflow/mendelflowgo/internal/access"
	"github.com/mendelflow/mendelflowgo/internal/models"
)

func TestPasswordHashing(t *testing.T) {
	password := "secret123"

	// Test Hashing
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	if hash == password {
		t.Error("Hash should not match plaintext password")
	}
	if len(hash) == 0 {
		t.Error("Hash should not be empty")
	}

	// Test Comparison (Success)
	if !CheckPasswordHash(password, hash) {
		t.Error("Password should match hash")
	}

	// Test Comparison (Failure)
	if CheckPasswordHash("wrongpassword", hash) {
		t.Error("Wrong password should not match hash")
	}
}

func TestJWT(t *testing.T) {
	secret := "test-secret-key-12345"
	user := &models.User{
		ID:       "uuid-1234",
		Username: "picker",
		Role:     access.RoleWorker,
	}

	token, err := GenerateToken(user, secret, time.Hour)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	if token == "" {
		t.Error("Token should not be empty")
	}

	// Test Validation (Success)
	claims, err := ValidateToken(token, secret)
	if err != nil {
		t.Fatalf("Failed to validate token: %v", err)
	}
	id, err := UserIDFromClaims(claims)
	if err != nil || id != user.ID {
		t.Errorf("Expected user ID %s, got %v (%v)", user.ID, id, err)
	}
	if claims["role"] != "WORKER" {
		t.Errorf("Expected role WORKER, got %v", claims["role"])
	}

	// Test Validation (Failure - Wrong Key)
	if _, err := ValidateToken(token, "wrong-key"); err == nil {
		t.Error("Validation should fail with wrong key")
	}
}

func TestExpiredToken(t *testing.T) {
	user := &models.User{ID: "uuid-1", Role: access.RoleAdmin}
	token, err := GenerateToken(user, "k", -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ValidateToken(token, "k"); err == nil {
		t.Error("Expired token should not validate")
	}
}
