package utils_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/KaramelBytes/pivotscribe/internal/utils"
)

func TestSafeWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")
	if err := utils.SafeWriteFile(path, []byte("first")); err != nil {
		t.Fatalf("SafeWriteFile: %v", err)
	}
	// overwrite in place
	if err := utils.SafeWriteFile(path, []byte("second")); err != nil {
		t.Fatalf("SafeWriteFile overwrite: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "second" {
		t.Errorf("content = %q, want second", b)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file left behind")
	}
}

func TestEnsureDirNested(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", "c")
	if err := utils.EnsureDir(dir); err != nil {
		t.Fatalf("EnsureDir: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Fatalf("stat %s: %v", dir, err)
	}
	// idempotent
	if err := utils.EnsureDir(dir); err != nil {
		t.Fatalf("EnsureDir again: %v", err)
	}
}

func TestSanitizeName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Summary", "Summary"},
		{"North America", "North-America"},
		{"Revenue Pivot", "Revenue-Pivot"},
		{"Q1/Q2", "Q1Q2"},
		{" spaced  out ", "spaced-out"},
		{"a - b", "a-b"},
		{"snake_case.v2", "snake_case.v2"},
		{"///", "unnamed"},
		{"", "unnamed"},
	}
	for _, c := range cases {
		if got := utils.SanitizeName(c.in); got != c.want {
			t.Errorf("SanitizeName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
