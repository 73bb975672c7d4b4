package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveVecOut(t *testing.T) {
	t.Run("explicit output wins", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "nested", "words.vec")
		got, defaulted, err := resolveVecOut("corpus.txt", out)
		if err != nil {
			t.Fatalf("resolveVecOut returned error: %v", err)
		}
		if defaulted {
			t.Fatalf("expected explicit output to not be defaulted")
		}
		if got != filepath.Clean(out) {
			t.Fatalf("unexpected output path: got %q want %q", got, out)
		}
		if _, err := os.Stat(filepath.Dir(got)); err != nil {
			t.Fatalf("expected output directory to exist: %v", err)
		}
	})

	t.Run("env output dir overrides default", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "vecs")
		t.Setenv(envOutDir, dir)
		got, defaulted, err := resolveVecOut("/data/wiki.train.txt", "")
		if err != nil {
			t.Fatalf("resolveVecOut returned error: %v", err)
		}
		if !defaulted {
			t.Fatalf("expected output to be defaulted")
		}
		if want := filepath.Join(dir, "wiki.train.vec"); got != want {
			t.Fatalf("unexpected output path: got %q want %q", got, want)
		}
	})

	t.Run("default output dir is ./out", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv(envOutDir, "")
		got, _, err := resolveVecOut("corpus.txt", "")
		if err != nil {
			t.Fatalf("resolveVecOut returned error: %v", err)
		}
		if want := filepath.Join(".", "out", "corpus.vec"); got != want {
			t.Fatalf("unexpected output path: got %q want %q", got, want)
		}
	})
}

func TestResolveInput(t *testing.T) {
	t.Parallel()
	if _, err := resolveInput(" "); err == nil {
		t.Fatal("expected error for empty input")
	}
	dir := t.TempDir()
	if _, err := resolveInput(dir); err == nil {
		t.Fatal("expected error for directory input")
	}
	file := filepath.Join(dir, "c.txt")
	if err := os.WriteFile(file, []byte("a b\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := resolveInput(file)
	if err != nil || got != file {
		t.Fatalf("expected %q, got %q %v", file, got, err)
	}
}
