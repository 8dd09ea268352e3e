// Package payment implements the two gateway integrations: request signing,
// outbound payment initiation and normalization of inbound notifications.
package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
	"net/url"
	"strings"
)

// Field is one key=value pair of a fixed-order canonical string.
type Field struct {
	Key   string
	Value string
}

func sign(h func() hash.Hash, secret, canonical string) string {
	mac := hmac.New(h, []byte(secret))
	mac.Write([]byte(canonical))
	return hex.EncodeToString(mac.Sum(nil))
}

// SignSHA512 returns the lowercase hex HMAC-SHA512 of canonical.
func SignSHA512(secret, canonical string) string { return sign(sha512.New, secret, canonical) }

// SignSHA256 returns the lowercase hex HMAC-SHA256 of canonical.
func SignSHA256(secret, canonical string) string { return sign(sha256.New, secret, canonical) }

// digestEqual compares two hex digests case-insensitively in constant time.
func digestEqual(expected, provided string) bool {
	if provided == "" {
		return false
	}
	return hmac.Equal([]byte(strings.ToLower(expected)), []byte(strings.ToLower(provided)))
}

// SortedCanonical drops the excluded keys, sorts the rest by key and
// URL-encodes them as key=value joined by '&'. Only the first value of a
// repeated key is used.
func SortedCanonical(params url.Values, exclude ...string) string {
	filtered := url.Values{}
	for k, vs := range params {
		if len(vs) == 0 || contains(exclude, k) {
			continue
		}
		filtered.Set(k, vs[0])
	}
	return filtered.Encode()
}

// OrderedCanonical joins fields in the given order as key=value&key=value
// without any escaping.
func OrderedCanonical(fields []Field) string {
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(f.Key)
		b.WriteByte('=')
		b.WriteString(f.Value)
	}
	return b.String()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
