package fetch

import (
	"strings"
	"testing"
)

func TestHashBytes(t *testing.T) {
	h := HashBytes([]byte("hello"))
	if !strings.HasPrefix(h, "sha256-") {
		t.Errorf("HashBytes = %q", h)
	}
	if h != HashBytes([]byte("hello")) {
		t.Errorf("HashBytes not deterministic")
	}
	if h == HashBytes([]byte("world")) {
		t.Errorf("different inputs share a digest")
	}
}

func TestVerifyIntegrity(t *testing.T) {
	data := []byte("payload")

	if err := VerifyIntegrity(data, ""); err != nil {
		t.Errorf("empty expected digest should pass: %v", err)
	}
	if err := VerifyIntegrity(data, HashBytes(data)); err != nil {
		t.Errorf("matching digest should pass: %v", err)
	}

	err := VerifyIntegrity(data, "sha256-deadbeef")
	if err == nil {
		t.Fatalf("mismatch should fail")
	}
	mismatch, ok := err.(*IntegrityMismatch)
	if !ok {
		t.Fatalf("error type = %T", err)
	}
	if mismatch.Expected != "sha256-deadbeef" || mismatch.Actual != HashBytes(data) {
		t.Errorf("mismatch = %+v", mismatch)
	}
}
