package conf

import (
	"testing"
)

func TestEnvOverrideReplacesSearchOrder(t *testing.T) {
	t.Setenv("WPCORE_CONFIG_DIR", "/a:/b")
	b := BaseDirs{AppName: "wpcore"}
	dirs := b.Dirs(CategoryConfig)
	if len(dirs) != 2 || dirs[0] != "/a" || dirs[1] != "/b" {
		t.Errorf("Dirs = %v, want the env list verbatim", dirs)
	}
}

func TestHighestPriorityFileWins(t *testing.T) {
	low := t.TempDir()
	high := t.TempDir()
	writeFile(t, low, "f.conf", `x = {}`)
	writeFile(t, high, "f.conf", `x = {}`)
	t.Setenv("WPCORE_CONFIG_DIR", low+":"+high)

	b := BaseDirs{AppName: "wpcore"}
	got := b.HighestPriorityFile(CategoryConfig, "f.conf")
	if got != high+"/f.conf" {
		t.Errorf("got %q, want the higher-priority copy", got)
	}
	if b.HighestPriorityFile(CategoryConfig, "missing.conf") != "" {
		t.Errorf("missing file should resolve to empty")
	}
}

func TestAllFilesLowestPriorityFirst(t *testing.T) {
	low := t.TempDir()
	high := t.TempDir()
	writeFile(t, low, "f.conf", `x = {}`)
	writeFile(t, high, "f.conf", `x = {}`)
	t.Setenv("WPCORE_CONFIG_DIR", low+":"+high)

	b := BaseDirs{AppName: "wpcore"}
	files := b.AllFiles(CategoryConfig, "f.conf")
	if len(files) != 2 || files[0] != low+"/f.conf" || files[1] != high+"/f.conf" {
		t.Errorf("AllFiles = %v, want lowest priority first", files)
	}
}

func TestFragmentFilesSortedAndShadowed(t *testing.T) {
	low := t.TempDir()
	high := t.TempDir()
	writeFile(t, low, "c.d/20-b.conf", `s = {}`)
	writeFile(t, low, "c.d/10-a.conf", `s = {}`)
	writeFile(t, high, "c.d/20-b.conf", `s = {}`)
	t.Setenv("WPCORE_CONFIG_DIR", low+":"+high)

	b := BaseDirs{AppName: "wpcore"}
	files := b.FragmentFiles(CategoryConfig, "c.d")
	if len(files) != 2 {
		t.Fatalf("FragmentFiles = %v, want 2 surviving fragments", files)
	}
	if files[0] != low+"/c.d/10-a.conf" {
		t.Errorf("files[0] = %q, want base-name order", files[0])
	}
	if files[1] != high+"/c.d/20-b.conf" {
		t.Errorf("files[1] = %q, want the higher-priority copy to shadow", files[1])
	}

	it := b.FragmentIterator(CategoryConfig, "c.d")
	n := 0
	for {
		if _, ok := it.Next(); !ok {
			break
		}
		n++
	}
	if n != 2 {
		t.Errorf("iterator yielded %d files, want 2", n)
	}
}
