package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/ledgerink/ledgerink/internal/common"
)

func TestGenerateAndParse_Success(t *testing.T) {
	t.Parallel()

	secret := []byte("super-secret")
	sponsorID := "sponsor-123"

	tok, err := GenerateSponsorToken(sponsorID, secret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateSponsorToken error: %v", err)
	}

	got, err := GetSponsorIDFromToken(tok, secret)
	if err != nil {
		t.Fatalf("GetSponsorIDFromToken error: %v", err)
	}
	if got != sponsorID {
		t.Fatalf("sponsorID mismatch: got %q want %q", got, sponsorID)
	}
}

func TestGetSponsorIDFromToken_Expired(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")

	tok, err := GenerateSponsorToken("s1", secret, -1*time.Second)
	if err != nil {
		t.Fatalf("GenerateSponsorToken error: %v", err)
	}

	_, err = GetSponsorIDFromToken(tok, secret)
	if err == nil {
		t.Fatalf("expected error for expired token, got nil")
	}
	if !errors.Is(err, common.ErrTokenExpired) {
		t.Fatalf("expected common.ErrTokenExpired, got %v", err)
	}
}

func TestGetSponsorIDFromToken_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := GenerateSponsorToken("s2", []byte("right-secret"), time.Hour)
	if err != nil {
		t.Fatalf("GenerateSponsorToken error: %v", err)
	}

	_, err = GetSponsorIDFromToken(tok, []byte("wrong-secret"))
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected common.ErrInvalidToken, got %v", err)
	}
}

func TestGetSponsorIDFromToken_MalformedString(t *testing.T) {
	t.Parallel()

	_, err := GetSponsorIDFromToken("not.a.jwt", []byte("k"))
	if err == nil {
		t.Fatalf("expected error for malformed token, got nil")
	}
}
