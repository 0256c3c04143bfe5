package finder

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var testExts = []string{".epub", ".fb2", ".fb2.zip", ".txt"}

func buildTree(t *testing.T, paths ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, p := range paths {
		full := filepath.Join(root, filepath.FromSlash(p))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func relAll(t *testing.T, root string, opts Options) []string {
	t.Helper()
	var rels []string
	for p := range Find(root, opts) {
		rel, err := filepath.Rel(root, p)
		if err != nil {
			t.Fatal(err)
		}
		rels = append(rels, filepath.ToSlash(rel))
	}
	return rels
}

func TestFindMatchesExtensions(t *testing.T) {
	root := buildTree(t,
		"alpha.epub",
		"beta.fb2",
		"gamma.fb2.zip",
		"notes.txt",
		"cover.jpg",
		"archive.zip",
	)

	got := relAll(t, root, Options{Extensions: testExts})
	want := []string{"alpha.epub", "beta.fb2", "gamma.fb2.zip", "notes.txt"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestFindCaseInsensitive(t *testing.T) {
	root := buildTree(t, "LOUD.EPUB")
	if got := relAll(t, root, Options{Extensions: testExts}); len(got) != 1 {
		t.Fatalf("got %v", got)
	}
}

func TestFindSkipsHidden(t *testing.T) {
	root := buildTree(t,
		"visible/book.epub",
		".stash/hidden.epub",
		"._resource.epub",
	)

	got := relAll(t, root, Options{Extensions: testExts})
	if len(got) != 1 || got[0] != "visible/book.epub" {
		t.Fatalf("got %v", got)
	}

	withHidden := relAll(t, root, Options{Extensions: testExts, SearchHidden: true})
	if len(withHidden) != 2 {
		t.Fatalf("search-hidden should enter dot directories, got %v", withHidden)
	}
	for _, p := range withHidden {
		if strings.HasPrefix(filepath.Base(p), ".") {
			t.Fatalf("hidden files themselves stay excluded: %v", withHidden)
		}
	}
}

func TestFindMaxDepth(t *testing.T) {
	root := buildTree(t,
		"a/book1.epub",
		"a/b/c/book2.epub",
	)

	got := relAll(t, root, Options{Extensions: testExts, MaxDepth: 1})
	if len(got) != 1 || got[0] != "a/book1.epub" {
		t.Fatalf("got %v", got)
	}
}

func TestFindNaturalOrder(t *testing.T) {
	root := buildTree(t,
		"book10.epub",
		"book2.epub",
		"book1.epub",
	)

	got := relAll(t, root, Options{Extensions: testExts})
	want := []string{"book1.epub", "book2.epub", "book10.epub"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestFindStopsEarly(t *testing.T) {
	root := buildTree(t, "one.epub", "sub/two.epub", "sub/three.epub")

	seen := 0
	for range Find(root, Options{Extensions: testExts}) {
		seen++
		break
	}
	if seen != 1 {
		t.Fatalf("iterator should stop after break, saw %d", seen)
	}
}

func TestCount(t *testing.T) {
	root := buildTree(t, "a.epub", "b/c.fb2", "d.txt", "e.md")
	if got := Count(root, Options{Extensions: testExts}); got != 3 {
		t.Fatalf("count = %d", got)
	}
}

func TestFindMissingRoot(t *testing.T) {
	got := FindAll(filepath.Join(t.TempDir(), "absent"), Options{Extensions: testExts})
	if got != nil {
		t.Fatalf("missing root yields nothing, got %v", got)
	}
}
