package fetch

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// IntegrityMismatch SourceIntegrityMismatch{expected,
// actual}.
type IntegrityMismatch struct {
	Expected string
	Actual   string
}

func (e *IntegrityMismatch) Error() string {
	return "source integrity mismatch: expected " + e.Expected + ", got " + e.Actual
}

// HashBytes computes the "sha256-<hex>" digest of data, the same textual
// form rockspec.SourceSpec.Integrity and tree.Hashes record.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return "sha256-" + hex.EncodeToString(sum[:])
}

// VerifyIntegrity checks data against the expected digest, when one is
// given. An empty expected digest means "nothing to verify" - not every
// rockspec source carries one.
func VerifyIntegrity(data []byte, expected string) error {
	if expected == "" {
		return nil
	}
	actual := HashBytes(data)
	if !strings.EqualFold(actual, expected) {
		return &IntegrityMismatch{Expected: expected, Actual: actual}
	}
	return nil
}
