package content

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefix for content digests. Version suffix enables future
// algorithm migration without colliding with old digests.
const DomainRecord = "strapi-sync/record/v1"

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null byte prevents
// domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Hash computes the stable digest of a normalized content tree,
// ignoring the named fields at every nesting level. Two records that
// differ only in ignored fields (documentId, timestamps) hash
// identically, which is what lets records from two instances with
// independent identifier spaces compare as equal.
func Hash(v Value, ignore ...string) (string, error) {
	stripped := StripFields(v, ignore...)

	canonical, err := MarshalCanonical(stripped)
	if err != nil {
		return "", fmt.Errorf("hash: marshal canonical: %w", err)
	}
	return hashWithDomain(DomainRecord, canonical), nil
}

// MustHash is like Hash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustHash(v Value, ignore ...string) string {
	digest, err := Hash(v, ignore...)
	if err != nil {
		panic(err)
	}
	return digest
}

// StripFields returns a copy of v with the named object keys removed
// at every depth. The input is never mutated.
func StripFields(v Value, fields ...string) Value {
	if len(fields) == 0 {
		return v
	}
	drop := make(map[string]bool, len(fields))
	for _, f := range fields {
		drop[f] = true
	}
	return stripFields(v, drop)
}

func stripFields(v Value, drop map[string]bool) Value {
	switch val := v.(type) {
	case Object:
		out := make(Object, len(val))
		for k, elem := range val {
			if drop[k] {
				continue
			}
			out[k] = stripFields(elem, drop)
		}
		return out
	case Array:
		out := make(Array, len(val))
		for i, elem := range val {
			out[i] = stripFields(elem, drop)
		}
		return out
	default:
		return v
	}
}
