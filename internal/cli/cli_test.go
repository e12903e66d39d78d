package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"colony-server/internal/auth"
	"colony-server/internal/claim"
	"colony-server/internal/colony"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func setupEnv(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("CLAIM_STORE", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "colonies.db"))
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--env-file", ""))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestClaimThenSnapshot(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "claim", "2:5:9", "--owner", "alice", "--label", "Alice")
	if err != nil {
		t.Fatalf("claim: %v\n%s", err, out)
	}
	var committed colony.Claim
	if err := json.Unmarshal([]byte(out), &committed); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if committed.Owner != "alice" {
		t.Fatalf("unexpected claim %+v", committed)
	}

	_, err = execute(t, "claim", "2:5:9", "--owner", "bob", "--label", "Bob")
	if err == nil || !strings.Contains(err.Error(), string(claim.KnownOccupied)) {
		t.Fatalf("expected known_occupied refusal, got %v", err)
	}
	if !strings.Contains(err.Error(), "2:5:1 is free") {
		t.Fatalf("refusal should suggest the first free position, got %v", err)
	}

	_, err = execute(t, "claim", "2:5:10", "--owner", "alice", "--label", "Alice")
	if err == nil || !strings.Contains(err.Error(), string(claim.OwnerSettled)) || strings.Contains(err.Error(), "is free") {
		t.Fatalf("settled owner should be refused without a suggestion, got %v", err)
	}

	out, err = execute(t, "snapshot", "--galaxy", "2", "--system", "5")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	var view claim.SystemView
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if slot := view.Slots[8]; !slot.Occupied || slot.Entry.Owner != "alice" {
		t.Fatalf("position 9 should belong to alice, got %+v", slot)
	}
}

func TestClaimRejectsMalformedCoordinate(t *testing.T) {
	setupEnv(t)
	if _, err := execute(t, "claim", "2-5-9", "--owner", "alice", "--label", "Alice"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestToken(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "token", "--owner", "carol", "--label", "Carol", "--ttl", "1h")
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	claims, err := auth.ValidateJWT(testSecret, strings.TrimSpace(out))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Owner != "carol" {
		t.Fatalf("unexpected owner %q", claims.Owner)
	}
}

func TestInvalidGridIsRejected(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
		want string
	}{
		{"negative positions", "GALAXY_POSITIONS", "-1", "galaxy bounds"},
		{"unbounded retries", "CLAIM_RETRY_MAX_TRIES", "0", "CLAIM_RETRY_MAX_TRIES"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupEnv(t)
			t.Setenv(tt.key, tt.val)

			_, err := execute(t, "snapshot", "--galaxy", "1", "--system", "1")
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected configuration error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}
