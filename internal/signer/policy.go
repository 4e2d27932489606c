// Package signer issues time-bounded signed URLs for objects in the storage
// bucket, either through the CDN's custom-policy scheme or through
// storage-native presigned URLs.
package signer

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"
)

// Policy is the canonical access-policy document the CDN verifies. Struct
// field order fixes the JSON key order; the serialized form must stay
// byte-stable because the signature is computed over it.
type Policy struct {
	Statement []Statement `json:"Statement"`
}

// Statement grants access to a single resource until a deadline.
type Statement struct {
	Resource  string    `json:"Resource"`
	Condition Condition `json:"Condition"`
}

// Condition carries the time bound of a statement.
type Condition struct {
	DateLessThan EpochTime `json:"DateLessThan"`
}

// EpochTime is the CDN's epoch-seconds timestamp wrapper.
type EpochTime struct {
	EpochTime int64 `json:"AWS:EpochTime"`
}

// NewPolicy builds a single-statement policy for resourceURL valid until
// expires.
func NewPolicy(resourceURL string, expires time.Time) *Policy {
	return &Policy{
		Statement: []Statement{
			{
				Resource: resourceURL,
				Condition: Condition{
					DateLessThan: EpochTime{EpochTime: expires.Unix()},
				},
			},
		},
	}
}

// Marshal serializes the policy as compact JSON with no extraneous
// whitespace.
func (p *Policy) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

var (
	encodeReplacer = strings.NewReplacer("+", "-", "=", "_", "/", "~")
	decodeReplacer = strings.NewReplacer("-", "+", "_", "=", "~", "/")
)

// EncodeSpecial applies standard base64 and then the CDN's own URL-safe
// substitutions (+ → -, = → _, / → ~). This is not RFC 4648 base64url.
func EncodeSpecial(b []byte) string {
	return encodeReplacer.Replace(base64.StdEncoding.EncodeToString(b))
}

// DecodeSpecial is the inverse of EncodeSpecial.
func DecodeSpecial(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(decodeReplacer.Replace(s))
}
