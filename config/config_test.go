package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	ebuildkit "ebuildkit.dev/ebuildkit"
	"ebuildkit.dev/ebuildkit/repo"
)

func writeRepo(t *testing.T, dir, id string) string {
	t.Helper()
	path := filepath.Join(dir, id)
	profiles := filepath.Join(path, "profiles")
	if err := os.MkdirAll(profiles, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(profiles, "repo_name"), []byte(id+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(profiles, "categories"), []byte("cat\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadRepoTOML(t *testing.T) {
	dir := t.TempDir()
	repoPath := writeRepo(t, dir, "gentoo")
	tomlPath := filepath.Join(dir, "gentoo.toml")
	content := "location = \"" + repoPath + "\"\npriority = 5\n"
	if err := os.WriteFile(tomlPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	rc, err := LoadRepoTOML(tomlPath)
	if err != nil {
		t.Fatalf("LoadRepoTOML: %v", err)
	}
	if rc.Id != "gentoo" || rc.Location != repoPath || rc.Priority != 5 || rc.Format != "ebuild" {
		t.Errorf("got %+v", rc)
	}
}

func TestLoadRepoTOMLMissingLocation(t *testing.T) {
	dir := t.TempDir()
	tomlPath := filepath.Join(dir, "broken.toml")
	if err := os.WriteFile(tomlPath, []byte("priority = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadRepoTOML(tomlPath); err == nil {
		t.Fatal("expected error for missing location")
	}
}

func TestLoadReposConfFileSkipsMissingLocation(t *testing.T) {
	dir := t.TempDir()
	repoPath := writeRepo(t, dir, "gentoo")
	confPath := filepath.Join(dir, "repos.conf")
	content := "[gentoo]\nlocation = " + repoPath + "\npriority = 10\nsync-uri = https://example.invalid/gentoo.git\n\n" +
		"[broken]\nsync-type = git\n"
	if err := os.WriteFile(confPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	core, logs := observer.New(zap.WarnLevel)
	repos, err := LoadReposConfFile(confPath, zap.New(core))
	if err != nil {
		t.Fatalf("LoadReposConfFile: %v", err)
	}
	if len(repos) != 1 || repos[0].Id != "gentoo" || repos[0].Priority != 10 {
		t.Fatalf("got %+v", repos)
	}
	if logs.Len() != 1 {
		t.Fatalf("expected one warning for the section missing location, got %d", logs.Len())
	}
}

func TestLoadReposConfDirOrderAndDotfiles(t *testing.T) {
	dir := t.TempDir()
	aPath := writeRepo(t, dir, "a-repo")
	bPath := writeRepo(t, dir, "b-repo")

	if err := os.WriteFile(filepath.Join(dir, "10-a.conf"), []byte("[a-repo]\nlocation = "+aPath+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "20-b.conf"), []byte("[b-repo]\nlocation = "+bPath+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	// Dotfile and non-.conf files must both be ignored.
	if err := os.WriteFile(filepath.Join(dir, ".30-hidden.conf"), []byte("[hidden]\nlocation = "+aPath+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("not a repos.conf fragment"), 0o644); err != nil {
		t.Fatal(err)
	}

	repos, err := LoadReposConfDir(dir, nil)
	if err != nil {
		t.Fatalf("LoadReposConfDir: %v", err)
	}
	if len(repos) != 2 || repos[0].Id != "a-repo" || repos[1].Id != "b-repo" {
		t.Fatalf("expected [a-repo, b-repo] in lexicographic order, got %+v", repos)
	}
}

func TestConfigAddRepoAndLookup(t *testing.T) {
	f, err := repo.NewFake("fake1", 0, []string{"cat/pkg-1"})
	if err != nil {
		t.Fatal(err)
	}
	c := New(nil)
	if err := c.AddRepo(f); err != nil {
		t.Fatalf("AddRepo: %v", err)
	}
	if _, err := c.Repo("fake1"); err != nil {
		t.Fatalf("Repo: %v", err)
	}
	if _, err := c.Repo("nonexistent"); err == nil {
		t.Fatal("expected NonexistentRepoError")
	}
	if err := c.AddRepo(f); err == nil {
		t.Fatal("expected error registering a duplicate id")
	}
}

func TestConfigLoadNoConfigEnvSkipsDiscovery(t *testing.T) {
	t.Setenv("EBUILDKIT_NO_CONFIG", "1")
	c, err := Load(LoadOptions{ReposConfPath: filepath.Join(t.TempDir(), "does-not-exist")})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(c.Repos()) != 0 {
		t.Errorf("expected empty Config, got %d repos", len(c.Repos()))
	}
}

func TestConfigLoadMissingPathIsConfigMissing(t *testing.T) {
	_, err := Load(LoadOptions{ReposConfPath: filepath.Join(t.TempDir(), "nope.conf")})
	var missing *ebuildkit.ConfigMissingError
	if !errors.As(err, &missing) {
		t.Fatalf("expected ConfigMissingError, got %v", err)
	}
}

func TestConfigLoadFromDirFinalizesMasters(t *testing.T) {
	dir := t.TempDir()
	basePath := writeRepo(t, dir, "base")
	overlayPath := writeRepo(t, dir, "overlay")

	confDir := filepath.Join(dir, "repos.conf")
	if err := os.MkdirAll(confDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(confDir, "10-base.conf"), []byte("[base]\nlocation = "+basePath+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(confDir, "20-overlay.conf"), []byte("[overlay]\nlocation = "+overlayPath+"\nmasters = base\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(LoadOptions{ReposConfPath: confDir})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	overlay := c.ebuilds["overlay"]
	if overlay == nil {
		t.Fatal("expected overlay repo registered")
	}
	masters := overlay.Masters()
	if len(masters) != 1 || masters[0].Id() != "base" {
		t.Fatalf("expected overlay's masters == [base], got %+v", masters)
	}
}

func TestFinalizeDetectsMastersCycle(t *testing.T) {
	dir := t.TempDir()
	aPath := writeRepo(t, dir, "a")
	bPath := writeRepo(t, dir, "b")

	c := New(nil)
	if err := c.addFromRepoConfig(&RepoConfig{Id: "a", Location: aPath, Masters: []string{"b"}}); err != nil {
		t.Fatal(err)
	}
	if err := c.addFromRepoConfig(&RepoConfig{Id: "b", Location: bPath, Masters: []string{"a"}}); err != nil {
		t.Fatal(err)
	}
	if err := c.Finalize(); err == nil {
		t.Fatal("expected cycle detection error")
	}
}
