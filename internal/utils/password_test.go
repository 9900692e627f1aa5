package utils

import "testing"

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("secret123", 4) // low cost keeps the test fast
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "secret123" {
		t.Fatal("hash equals plaintext")
	}
	if !VerifyPassword(hash, "secret123") {
		t.Error("correct password rejected")
	}
	if VerifyPassword(hash, "wrongpass") {
		t.Error("wrong password accepted")
	}
}

func TestGoogleSentinelNeverVerifies(t *testing.T) {
	for _, pw := range []string{"", "password", GooglePasswordSentinel} {
		if VerifyPassword(GooglePasswordSentinel, pw) {
			t.Errorf("sentinel verified against %q", pw)
		}
	}
}
