package security

import (
	"testing"
	"time"

	"github.com/ecowell/eco-engine-go/internal/domain/user"
)

func TestProfileTokenRoundTrip(t *testing.T) {
	const secret = "test-secret"

	profile := &user.Profile{
		GuestID:   "f47ac10b-58cc-4372-a567-0e02b2c3d479",
		LeadID:    "01HZXW3V9Q8R5T2Y7K4M6N8P1A",
		Firstname: "Ada",
		Email:     "ada@example.com",
		Tier:      "essentials",
	}

	token, err := GenerateProfileToken(profile, secret, time.Hour)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	claims, err := ValidateJWT(token, secret)
	if err != nil {
		t.Fatalf("failed to validate token: %v", err)
	}

	decoded := GetProfileFromClaims(claims)
	if decoded == nil {
		t.Fatal("claims must yield a profile")
	}
	if *decoded != *profile {
		t.Fatalf("round trip produced %+v, want %+v", decoded, profile)
	}
}

func TestValidateJWTRejectsWrongSecret(t *testing.T) {
	profile := &user.Profile{LeadID: "lead-1", Tier: "free"}
	token, err := GenerateProfileToken(profile, "right-secret", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ValidateJWT(token, "wrong-secret"); err == nil {
		t.Fatal("token signed with another secret must be rejected")
	}
}

func TestValidateJWTRejectsExpiredToken(t *testing.T) {
	profile := &user.Profile{LeadID: "lead-1", Tier: "free"}
	token, err := GenerateProfileToken(profile, "secret", -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ValidateJWT(token, "secret"); err == nil {
		t.Fatal("expired token must be rejected")
	}
}

func TestValidateJWTRejectsGarbage(t *testing.T) {
	if _, err := ValidateJWT("not.a.token", "secret"); err == nil {
		t.Fatal("malformed token must be rejected")
	}
}

func TestGetProfileFromClaimsWithoutProfileBlock(t *testing.T) {
	if p := GetProfileFromClaims(map[string]any{"sub": "x"}); p != nil {
		t.Fatalf("claims without a profile block must yield nil, got %+v", p)
	}
}
