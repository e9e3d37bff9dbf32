package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DefaultAuthTTL bounds how old a signed auth payload may be. The bot
// signs a fresh payload per login, so a short window is enough.
const DefaultAuthTTL = 5 * time.Minute

// ValidateSignedAuth verifies an HMAC-signed auth payload from the bot.
// The payload is a query string carrying at least telegram_user_id,
// auth_date and sig, where
//
//	sig = hex(HMAC-SHA256(secret, sorted "k=v" pairs joined by "\n"))
//
// over every key except sig itself. maxAge <= 0 uses DefaultAuthTTL.
func ValidateSignedAuth(payload string, secret string, maxAge time.Duration) (url.Values, error) {
	if maxAge <= 0 {
		maxAge = DefaultAuthTTL
	}

	vals, err := url.ParseQuery(payload)
	if err != nil {
		return nil, fmt.Errorf("invalid auth payload format: %w", err)
	}

	receivedSig := vals.Get("sig")
	if receivedSig == "" {
		return nil, fmt.Errorf("sig is missing from auth payload")
	}

	authDateStr := vals.Get("auth_date")
	if authDateStr == "" {
		return nil, fmt.Errorf("auth_date is missing from auth payload")
	}
	authDateUnix, err := strconv.ParseInt(authDateStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("auth_date is not a valid unix timestamp")
	}
	authDate := time.Unix(authDateUnix, 0)
	if time.Since(authDate) > maxAge {
		return nil, fmt.Errorf("auth payload expired: auth_date is %s old (max %s)", time.Since(authDate).Round(time.Second), maxAge)
	}
	// clock skew allowance, 1 min
	if authDate.After(time.Now().Add(1 * time.Minute)) {
		return nil, fmt.Errorf("auth_date is in the future")
	}

	var pairs []string
	for key, values := range vals {
		if key == "sig" {
			continue
		}
		for _, v := range values {
			pairs = append(pairs, fmt.Sprintf("%s=%s", key, v))
		}
	}
	sort.Strings(pairs)
	dataCheckString := strings.Join(pairs, "\n")

	calculated := hex.EncodeToString(hmacSHA256([]byte(secret), []byte(dataCheckString)))
	if !hmac.Equal([]byte(calculated), []byte(receivedSig)) {
		return nil, fmt.Errorf("invalid sig: data integrity check failed")
	}

	return vals, nil
}

func hmacSHA256(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}
