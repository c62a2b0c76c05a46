package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSafeWriteFileCreatesParents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "out.md")
	if err := SafeWriteFile(path, []byte("hello")); err != nil {
		t.Fatalf("SafeWriteFile: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil || string(b) != "hello" {
		t.Fatalf("read back = %q, %v", b, err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}
}

func TestPrettyJSON(t *testing.T) {
	b, err := PrettyJSON(map[string]int{"b": 2, "a": 1})
	if err != nil {
		t.Fatalf("PrettyJSON: %v", err)
	}
	want := "{\n  \"a\": 1,\n  \"b\": 2\n}"
	if string(b) != want {
		t.Fatalf("got %q want %q", b, want)
	}
}

func TestSlug(t *testing.T) {
	cases := map[string]string{
		"Cars vs Average_Temperature": "cars-vs-average-temperature",
		"  CO₂ (Mt) ":                 "co-mt",
		"!!!":                         "untitled",
		"Émissions 1990–2016":         "émissions-1990-2016",
	}
	for in, want := range cases {
		if got := Slug(in); got != want {
			t.Errorf("Slug(%q) = %q, want %q", in, got, want)
		}
	}
}
