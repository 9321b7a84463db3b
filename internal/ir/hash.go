package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for fingerprints.
// Version suffix enables future algorithm migration.
const (
	DomainSpecification = "shapeq/spec/v1"
	DomainBindings      = "shapeq/bindings/v1"
	DomainEntity        = "shapeq/entity/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint hashes the canonical JSON of v under a domain prefix.
// Equal values always produce equal fingerprints, independent of map
// iteration order.
func Fingerprint(domain string, v IRValue) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", domain, err)
	}
	return hashWithDomain(domain, canonical), nil
}

// MustFingerprint is like Fingerprint but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustFingerprint(domain string, v IRValue) string {
	fp, err := Fingerprint(domain, v)
	if err != nil {
		panic(err)
	}
	return fp
}
