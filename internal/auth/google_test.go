package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/api/idtoken"
)

const testAudience = "farm-assist-client"

// googleToken builds a token shaped like a Google ID token.  The signature
// is an HMAC over a throwaway key, so the primary verifier always rejects
// it; only the claim payload matters for these tests.
func googleToken(t *testing.T, iss, aud string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss":     iss,
		"aud":     aud,
		"sub":     "10769150350006150715113082367",
		"email":   "asha@x.com",
		"name":    "Asha",
		"picture": "https://example.com/asha.png",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	raw, err := tok.SignedString([]byte("not-google"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return raw
}

func TestVerifyPrimaryPath(t *testing.T) {
	raw := googleToken(t, googleIssuer, testAudience)
	v := NewGoogleVerifier([]string{testAudience}, false).
		WithValidator(func(ctx context.Context, token, audience string) (*idtoken.Payload, error) {
			if token != raw {
				t.Errorf("validator saw token %q", token)
			}
			if audience != testAudience {
				return nil, errors.New("audience mismatch")
			}
			return &idtoken.Payload{
				Subject: "10769150350006150715113082367",
				Claims: map[string]interface{}{
					"email":   "asha@x.com",
					"name":    "Asha",
					"picture": "https://example.com/asha.png",
				},
			}, nil
		})

	id, err := v.Verify(context.Background(), raw)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id.Email != "asha@x.com" || id.Subject == "" || id.Name != "Asha" {
		t.Errorf("identity = %+v", id)
	}
}

func TestVerifyFallbackDisabled(t *testing.T) {
	raw := googleToken(t, googleIssuer, testAudience)
	v := NewGoogleVerifier([]string{testAudience}, false).
		WithValidator(func(ctx context.Context, token, audience string) (*idtoken.Payload, error) {
			return nil, errors.New("signature check failed")
		})

	if _, err := v.Verify(context.Background(), raw); !errors.Is(err, ErrVerification) {
		t.Fatalf("Verify: got %v, want ErrVerification", err)
	}
}

func TestVerifyFallback(t *testing.T) {
	failing := func(ctx context.Context, token, audience string) (*idtoken.Payload, error) {
		return nil, errors.New("certificate endpoint unreachable")
	}

	tests := []struct {
		name    string
		iss     string
		aud     string
		wantErr bool
	}{
		{"issuer and audience match", googleIssuer, testAudience, false},
		{"legacy issuer accepted", googleIssuerLegacy, testAudience, false},
		{"wrong issuer rejected", "https://evil.example.com", testAudience, true},
		{"wrong audience rejected", googleIssuer, "someone-elses-client", true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			v := NewGoogleVerifier([]string{testAudience}, true).WithValidator(failing)
			id, err := v.Verify(context.Background(), googleToken(t, test.iss, test.aud))
			if test.wantErr {
				if !errors.Is(err, ErrVerification) {
					t.Fatalf("got %v, want ErrVerification", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Verify: %v", err)
			}
			if id.Email != "asha@x.com" {
				t.Errorf("identity = %+v", id)
			}
		})
	}
}

func TestVerifyProviderTimeout(t *testing.T) {
	v := NewGoogleVerifier([]string{testAudience}, true).
		WithValidator(func(ctx context.Context, token, audience string) (*idtoken.Payload, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})
	v.Timeout = 10 * time.Millisecond

	_, err := v.Verify(context.Background(), googleToken(t, googleIssuer, testAudience))
	if !errors.Is(err, ErrProviderTimeout) {
		t.Fatalf("got %v, want ErrProviderTimeout", err)
	}
}

func TestDecodeUnverifiedAudienceList(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": googleIssuer,
		"aud": []string{testAudience, "secondary"},
		"sub": "42",
	})
	raw, err := tok.SignedString([]byte("k"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	claims, err := decodeUnverified(raw)
	if err != nil {
		t.Fatalf("decodeUnverified: %v", err)
	}
	if claims.Audience != testAudience {
		t.Errorf("audience = %q, want first list entry", claims.Audience)
	}

	if _, err := decodeUnverified("garbage"); err == nil {
		t.Error("garbage decoded without error")
	}
}
