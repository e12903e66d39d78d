package auth

import (
	"testing"
	"time"
)

const secret = "0123456789abcdef0123456789abcdef"

func TestJWTRoundTrip(t *testing.T) {
	token, err := GenerateJWT(secret, "player-7", "Seven", time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := ValidateJWT(secret, token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Owner != "player-7" || claims.Label != "Seven" || claims.Subject != "player-7" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestValidateJWTRejects(t *testing.T) {
	expired, err := GenerateJWT(secret, "p", "P", -time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := ValidateJWT(secret, expired); err == nil {
		t.Fatal("expected expired token to be rejected")
	}

	valid, _ := GenerateJWT(secret, "p", "P", time.Hour)
	if _, err := ValidateJWT("ffffffffffffffffffffffffffffffff", valid); err == nil {
		t.Fatal("expected token signed with another secret to be rejected")
	}
	if _, err := ValidateJWT("short", valid); err == nil {
		t.Fatal("expected short secret to be rejected")
	}
}
