package security

import (
	"regexp"
	"testing"
)

func TestGenerateToken(t *testing.T) {
	token, err := GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken() error = %v, want nil", err)
	}

	// 32 bytes * 2 hex chars per byte
	if len(token) != 64 {
		t.Errorf("token length = %d, want 64", len(token))
	}

	hexPattern := regexp.MustCompile(`^[a-f0-9]{64}$`)
	if !hexPattern.MatchString(token) {
		t.Errorf("token = %s, want valid hex string", token)
	}
}

func TestGenerateToken_MultipleTokens(t *testing.T) {
	tokens := make(map[string]bool)

	for i := 0; i < 100; i++ {
		token, err := GenerateToken()
		if err != nil {
			t.Fatalf("GenerateToken() error = %v, want nil", err)
		}

		if tokens[token] {
			t.Errorf("GenerateToken() produced duplicate token on iteration %d", i)
		}
		tokens[token] = true
	}
}
