package walker_test

import (
	"os"
	"path/filepath"
	"testing"

	"mergectx/internal/walker"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

func collect(t *testing.T, root string, exts map[string]bool) map[string]bool {
	t.Helper()
	files, errs := walker.Walk(root, exts)
	got := make(map[string]bool)
	for fi := range files {
		got[fi.RelPath] = true
	}
	if err := <-errs; err != nil {
		t.Fatalf("walk: %v", err)
	}
	return got
}

func TestWalk_FiltersExtensionsAndSkipDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.py", "print(1)\n")
	writeFile(t, root, "sub/b.go", "package sub\n")
	writeFile(t, root, "notes.txt", "not source\n")
	writeFile(t, root, "node_modules/dep.py", "print(2)\n")
	writeFile(t, root, "__pycache__/c.py", "print(3)\n")

	got := collect(t, root, map[string]bool{"py": true, "go": true})

	want := map[string]bool{"a.py": true, "sub/b.go": true}
	for rel := range want {
		if !got[rel] {
			t.Errorf("missing %s", rel)
		}
	}
	for rel := range got {
		if !want[rel] {
			t.Errorf("unexpected file %s", rel)
		}
	}
}

func TestWalk_HonorsGitignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "generated.py\nscratch/\n")
	writeFile(t, root, "kept.py", "print(1)\n")
	writeFile(t, root, "generated.py", "print(2)\n")
	writeFile(t, root, "scratch/tmp.py", "print(3)\n")

	got := collect(t, root, map[string]bool{"py": true})

	if !got["kept.py"] {
		t.Error("kept.py should be walked")
	}
	if got["generated.py"] {
		t.Error("generated.py should be gitignored")
	}
	if got["scratch/tmp.py"] {
		t.Error("scratch/ should be gitignored")
	}
}

func TestWalk_SkipsEmptyFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "empty.py", "")
	writeFile(t, root, "full.py", "x = 1\n")

	got := collect(t, root, map[string]bool{"py": true})

	if got["empty.py"] {
		t.Error("empty file should be skipped")
	}
	if !got["full.py"] {
		t.Error("full.py should be walked")
	}
}
