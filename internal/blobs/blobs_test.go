package blobs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCleanupName(t *testing.T) {
	storage, err := NewStorage(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	for _, tc := range []struct {
		input    string
		expected string
	}{
		{"scores.csv", "scores.csv"},
		{"midterm scores 10A.csv", "midterm_scores_10A.csv"},
		{"../../etc/passwd", "passwd"},
		{"C:\\Users\\teacher\\math.csv", "math.csv"},
		{".hidden.csv", "hidden.csv"},
		{"", ""},
	} {
		if got := storage.CleanupName(tc.input); got != tc.expected {
			t.Errorf("CleanupName(%q) = %q, expected %q", tc.input, got, tc.expected)
		}
	}
}

func TestCommitPublishesBlob(t *testing.T) {
	dir := t.TempDir()
	storage, err := NewStorage(dir)
	if err != nil {
		t.Fatal(err)
	}

	blob, err := storage.Create("math.csv")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := blob.Write([]byte("studentID,score\nS1,72\n")); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(blob.Path); !os.IsNotExist(err) {
		t.Fatalf("Blob is visible before commit: %v", err)
	}
	if err := blob.Commit(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(blob.Path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "studentID,score\nS1,72\n" {
		t.Fatalf("Unexpected blob content %q", data)
	}
	if blob.Size() != int64(len(data)) {
		t.Fatalf("Invalid size %d, expected %d", blob.Size(), len(data))
	}
	if !strings.HasPrefix(filepath.Base(blob.Path), blob.ID) {
		t.Fatalf("Blob path %s does not start with its id %s", blob.Path, blob.ID)
	}
}

func TestAbortRemovesBlob(t *testing.T) {
	dir := t.TempDir()
	storage, err := NewStorage(dir)
	if err != nil {
		t.Fatal(err)
	}

	blob, err := storage.Create("math.csv")
	if err != nil {
		t.Fatal(err)
	}
	blob.Abort()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("Expected empty uploads dir, found %d entries", len(entries))
	}
}
