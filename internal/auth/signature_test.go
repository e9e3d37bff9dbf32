package auth

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"
)

// helper: builds a signed payload with a valid sig and given auth_date
func buildSignedAuth(secret string, authDate time.Time, extra map[string]string) string {
	params := url.Values{}
	params.Set("auth_date", strconv.FormatInt(authDate.Unix(), 10))
	for k, v := range extra {
		params.Set(k, v)
	}

	var pairs []string
	for key, values := range params {
		for _, v := range values {
			pairs = append(pairs, fmt.Sprintf("%s=%s", key, v))
		}
	}
	sort.Strings(pairs)
	dataCheckString := strings.Join(pairs, "\n")

	sig := hmacSHA256([]byte(secret), []byte(dataCheckString))
	params.Set("sig", hex.EncodeToString(sig))

	return params.Encode()
}

func TestValidateSignedAuth_ValidSig(t *testing.T) {
	secret := "test-auth-secret-12345"

	payload := buildSignedAuth(secret, time.Now().Add(-30*time.Second), map[string]string{
		"telegram_user_id": "123456",
		"username":         "testuser",
	})

	result, err := ValidateSignedAuth(payload, secret, 5*time.Minute)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if result.Get("telegram_user_id") != "123456" {
		t.Errorf("expected telegram_user_id=123456, got %s", result.Get("telegram_user_id"))
	}
}

func TestValidateSignedAuth_ExpiredAuthDate(t *testing.T) {
	secret := "test-auth-secret-12345"

	payload := buildSignedAuth(secret, time.Now().Add(-10*time.Minute), map[string]string{
		"telegram_user_id": "123456",
	})

	_, err := ValidateSignedAuth(payload, secret, 5*time.Minute)
	if err == nil {
		t.Fatal("expected error for expired payload")
	}
	if !strings.Contains(err.Error(), "expired") {
		t.Errorf("expected 'expired' in error, got: %s", err.Error())
	}
}

func TestValidateSignedAuth_FutureAuthDate(t *testing.T) {
	secret := "test-auth-secret-12345"

	payload := buildSignedAuth(secret, time.Now().Add(5*time.Minute), map[string]string{
		"telegram_user_id": "123456",
	})

	_, err := ValidateSignedAuth(payload, secret, 5*time.Minute)
	if err == nil {
		t.Fatal("expected error for future auth_date")
	}
	if !strings.Contains(err.Error(), "future") {
		t.Errorf("expected 'future' in error, got: %s", err.Error())
	}
}

func TestValidateSignedAuth_WrongSecret(t *testing.T) {
	payload := buildSignedAuth("right-secret", time.Now(), map[string]string{
		"telegram_user_id": "123456",
	})

	_, err := ValidateSignedAuth(payload, "wrong-secret", 5*time.Minute)
	if err == nil {
		t.Fatal("expected error for sig made with a different secret")
	}
}

func TestValidateSignedAuth_MissingSig(t *testing.T) {
	params := url.Values{}
	params.Set("auth_date", strconv.FormatInt(time.Now().Unix(), 10))

	_, err := ValidateSignedAuth(params.Encode(), "secret", 5*time.Minute)
	if err == nil {
		t.Fatal("expected error for missing sig")
	}
}

func TestValidateSignedAuth_MissingAuthDate(t *testing.T) {
	params := url.Values{}
	params.Set("telegram_user_id", "123456")
	params.Set("sig", "somesig")

	_, err := ValidateSignedAuth(params.Encode(), "secret", 5*time.Minute)
	if err == nil {
		t.Fatal("expected error for missing auth_date")
	}
}

func TestValidateSignedAuth_DefaultMaxAge(t *testing.T) {
	secret := "test-auth-secret-12345"

	payload := buildSignedAuth(secret, time.Now().Add(-10*time.Second), map[string]string{
		"telegram_user_id": "123456",
	})

	if _, err := ValidateSignedAuth(payload, secret, 0); err != nil {
		t.Fatalf("expected no error with default maxAge, got: %v", err)
	}
}
