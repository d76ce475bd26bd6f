package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for fingerprints. The version suffix leaves room for an
// algorithm change without colliding with stored values.
const (
	DomainMarkup   = "varsync/markup/v1"
	DomainMutation = "varsync/mutation/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// MarkupFingerprint identifies a piece of markup by content. Canonically
// equivalent unicode yields the same fingerprint.
func MarkupFingerprint(markup string) (string, error) {
	data, err := Marshal(markup)
	if err != nil {
		return "", fmt.Errorf("MarkupFingerprint: %w", err)
	}
	return hashWithDomain(DomainMarkup, data), nil
}

// MutationFingerprint identifies one journaled mutation: what was done, to
// which target, with which markup.
func MutationFingerprint(kind, target, markup string) (string, error) {
	data, err := Marshal(map[string]any{
		"kind":   kind,
		"target": target,
		"markup": markup,
	})
	if err != nil {
		return "", fmt.Errorf("MutationFingerprint: %w", err)
	}
	return hashWithDomain(DomainMutation, data), nil
}
