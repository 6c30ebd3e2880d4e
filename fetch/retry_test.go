package fetch

import (
	"io"
	"net/http"
	"strings"
	"testing"
)

func fakeResponse(code int) *http.Response {
	return &http.Response{StatusCode: code, Body: io.NopCloser(strings.NewReader(""))}
}

func TestRetryableStatus(t *testing.T) {
	for code, want := range map[int]bool{
		200: false,
		304: false,
		404: false,
		500: true,
		503: true,
		599: true,
	} {
		if got := retryableStatus(code); got != want {
			t.Errorf("retryableStatus(%d) = %v, want %v", code, got, want)
		}
	}
}

func TestWithRetryRecovers(t *testing.T) {
	attempts := 0
	resp, err := withRetry(4, func() (*http.Response, error) {
		attempts++
		if attempts < 3 {
			return fakeResponse(500), nil
		}
		return fakeResponse(200), nil
	})
	if err != nil {
		t.Fatalf("withRetry: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d", attempts)
	}
}

func TestWithRetryGivesUp(t *testing.T) {
	attempts := 0
	_, err := withRetry(3, func() (*http.Response, error) {
		attempts++
		return fakeResponse(503), nil
	})
	if err == nil {
		t.Fatalf("expected error after exhausting retries")
	}
	if attempts != 3 {
		t.Errorf("attempts = %d", attempts)
	}
}

func TestWithRetryDoesNotRetry4xx(t *testing.T) {
	attempts := 0
	resp, err := withRetry(3, func() (*http.Response, error) {
		attempts++
		return fakeResponse(404), nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 404 || attempts != 1 {
		t.Errorf("status = %d, attempts = %d", resp.StatusCode, attempts)
	}
}
