package cookies

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/ltdang/musicrelay/internal/errors"
	"github.com/ltdang/musicrelay/pkg/logger"
)

const sampleCookies = "# Netscape HTTP Cookie File\n.youtube.com\tTRUE\t/\tTRUE\t0\tCONSENT\tYES+1\n"

func newStore(t *testing.T) *Store {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "cookies.txt"), logger.Discard())
}

func TestSetFromTextAndPresent(t *testing.T) {
	s := newStore(t)

	if s.Present() {
		t.Error("fresh store should report no cookies")
	}

	if err := s.SetFromText(sampleCookies); err != nil {
		t.Fatalf("SetFromText failed: %v", err)
	}

	if !s.Present() {
		t.Error("store should report cookies after SetFromText")
	}

	content, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != sampleCookies {
		t.Error("stored content does not match input")
	}
}

func TestExportRoundTrip(t *testing.T) {
	s := newStore(t)

	_, err := s.Export()
	if err == nil {
		t.Fatal("Export with no cookies should fail")
	}
	if got := apperrors.GetUserMessage(err); got != "📭 No cookies are stored" {
		t.Errorf("user message = %q", got)
	}

	if err := s.SetFromText(sampleCookies); err != nil {
		t.Fatal(err)
	}

	encoded, err := s.Export()
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("Export output is not valid base64: %v", err)
	}
	if string(decoded) != sampleCookies {
		t.Error("decoded export does not match stored cookies")
	}
}

func TestClear(t *testing.T) {
	s := newStore(t)

	if err := s.SetFromText(sampleCookies); err != nil {
		t.Fatal(err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if s.Present() {
		t.Error("store should report no cookies after Clear")
	}

	// Clearing twice is fine
	if err := s.Clear(); err != nil {
		t.Errorf("second Clear should be a no-op, got %v", err)
	}
}

func TestSetLeavesNoTempFile(t *testing.T) {
	s := newStore(t)

	if err := s.SetFromText(sampleCookies); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(s.Path() + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file should not survive a successful write")
	}
}
