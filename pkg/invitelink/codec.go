// Package invitelink derives shareable referral tokens from phone numbers.
//
// The transform is a repeating-key XOR followed by URL-safe base64. It is an
// obfuscation scheme only: the key ships with every client and anyone can
// reverse a token. Never use it where confidentiality is required.
package invitelink

import (
	"encoding/base64"
	"errors"
	"strings"
)

// DefaultKey is the key used by existing links in circulation.
const DefaultKey = "PyramidingSecure2024"

var ErrInvalidToken = errors.New("invalid invite token")

type Codec struct {
	key []byte
}

func NewCodec(key string) *Codec {
	if key == "" {
		key = DefaultKey
	}
	return &Codec{key: []byte(key)}
}

// Encode returns the token for phone. Input containing non-ASCII characters
// is returned unchanged.
func (c *Codec) Encode(phone string) string {
	for i := 0; i < len(phone); i++ {
		if phone[i] >= 0x80 {
			return phone
		}
	}
	raw := c.xor([]byte(phone))
	return base64.RawURLEncoding.EncodeToString(raw)
}

// Decode reverses Encode. Padding is optional on input, and tokens in the
// standard base64 alphabet are accepted as well. A space is read as '+' since
// query decoding turns an unescaped '+' into one.
func (c *Codec) Decode(token string) (string, error) {
	token = strings.TrimRight(strings.ReplaceAll(token, " ", "+"), "=")
	if token == "" {
		return "", ErrInvalidToken
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		raw, err = base64.RawStdEncoding.DecodeString(token)
		if err != nil {
			return "", ErrInvalidToken
		}
	}
	return string(c.xor(raw)), nil
}

func (c *Codec) xor(in []byte) []byte {
	out := make([]byte, len(in))
	for i, b := range in {
		out[i] = b ^ c.key[i%len(c.key)]
	}
	return out
}

// Link builds the registration URL carrying ref. baseURL may end with a slash.
func Link(baseURL, ref string) string {
	return strings.TrimRight(baseURL, "/") + "/register?ref=" + ref
}

// PreferredRef picks the backend-issued referral code when present and falls
// back to the derived phone token otherwise.
func (c *Codec) PreferredRef(referralCode, phone string) string {
	if referralCode != "" {
		return referralCode
	}
	return c.Encode(phone)
}
