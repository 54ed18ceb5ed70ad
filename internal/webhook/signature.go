package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"hash"
	"strings"

	"github.com/akylbek/payment-system/connector-switch/internal/models"
)

func signatureNotFound(format string, args ...any) error {
	return models.NewError(models.ErrKindWebhookSignatureNotFound, fmt.Errorf(format, args...))
}

// HexHeader decodes a hex signature carried in header name.
func HexHeader(req *Request, name string) ([]byte, error) {
	raw := req.Header(name)
	if raw == "" {
		return nil, signatureNotFound("header %s missing", name)
	}
	sig, err := hex.DecodeString(raw)
	if err != nil {
		return nil, signatureNotFound("header %s: %v", name, err)
	}
	return sig, nil
}

// Base64Header decodes a base64 signature carried in header name.
func Base64Header(req *Request, name string) ([]byte, error) {
	raw := req.Header(name)
	if raw == "" {
		return nil, signatureNotFound("header %s missing", name)
	}
	sig, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, signatureNotFound("header %s: %v", name, err)
	}
	return sig, nil
}

// ParseSignatureList splits a "t=123,v1=abc,v1=def" header into its keys.
// Repeated keys keep every value in order.
func ParseSignatureList(value string) map[string][]string {
	out := make(map[string][]string)
	for _, part := range strings.Split(value, ",") {
		key, val, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || key == "" {
			continue
		}
		out[key] = append(out[key], val)
	}
	return out
}

// ListValue returns the first value of key in a signature list header.
func ListValue(req *Request, header, key string) (string, error) {
	values, err := ListValues(req, header, key)
	if err != nil {
		return "", err
	}
	return values[0], nil
}

// ListValues returns every non-empty value of key in a signature list
// header, in header order.
func ListValues(req *Request, header, key string) ([]string, error) {
	raw := req.Header(header)
	if raw == "" {
		return nil, signatureNotFound("header %s missing", header)
	}
	var values []string
	for _, v := range ParseSignatureList(raw)[key] {
		if v != "" {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return nil, signatureNotFound("header %s has no %s", header, key)
	}
	return values, nil
}

func hasher(alg Algorithm) (func() hash.Hash, error) {
	switch alg {
	case HmacSha256:
		return sha256.New, nil
	case HmacSha512:
		return sha512.New, nil
	}
	return nil, fmt.Errorf("unsupported algorithm %q", alg)
}

// Sign computes the HMAC of message under secret.
func Sign(alg Algorithm, secret, message []byte) ([]byte, error) {
	h, err := hasher(alg)
	if err != nil {
		return nil, err
	}
	mac := hmac.New(h, secret)
	mac.Write(message)
	return mac.Sum(nil), nil
}

// VerifyHMAC reports whether signature is the HMAC of message. The
// comparison is constant time.
func VerifyHMAC(alg Algorithm, secret, message, signature []byte) (bool, error) {
	expected, err := Sign(alg, secret, message)
	if err != nil {
		return false, err
	}
	return hmac.Equal(expected, signature), nil
}
