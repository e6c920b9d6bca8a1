package exchange

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"
)

func TestCoinbaseClientSignMatchesHMACSHA256(t *testing.T) {
	secret := base64.StdEncoding.EncodeToString([]byte("super-secret"))
	c, err := NewCoinbaseClient("key", secret, "pass")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := c.sign("1690000000", "GET", "/accounts", "")

	mac := hmac.New(sha256.New, []byte("super-secret"))
	mac.Write([]byte("1690000000GET/accounts"))
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if got != want {
		t.Fatalf("sign() = %q, want %q", got, want)
	}
}

func TestNewCoinbaseClientRejectsNonBase64Secret(t *testing.T) {
	if _, err := NewCoinbaseClient("key", "not-base64!!!", "pass"); err == nil {
		t.Fatal("expected error for invalid base64 secret")
	}
}

func TestCoinbaseStatusMapping(t *testing.T) {
	cases := map[string]Status{
		"open":     StatusPending,
		"pending":  StatusPending,
		"active":   StatusPartiallyFilled,
		"done":     StatusFilled,
		"settled":  StatusFilled,
		"rejected": StatusRejected,
		"bogus":    StatusUnknown,
	}
	for in, want := range cases {
		if got := coinbaseStatus(in); got != want {
			t.Errorf("coinbaseStatus(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestCoinbaseProductID(t *testing.T) {
	if got := coinbaseProductID("btc-usd"); got != "BTC-USD" {
		t.Fatalf("coinbaseProductID() = %q, want BTC-USD", got)
	}
}
