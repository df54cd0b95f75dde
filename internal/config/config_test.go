package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauern/docsync/internal/model"
	"github.com/klauern/docsync/internal/state"
	"github.com/klauern/docsync/internal/sync"
	"github.com/klauern/docsync/internal/util"
)

const sampleYAML = `
remote:
  url: https://trac.example.com/project
  username: alice
  timeout: 30s
default_profile: docs
sync:
  docs:
    source: docs
    destination: Docs
    conflict_strategy: markers
    mappings:
      - pattern: "guide/**/*.md"
        namespace: "Guide/{parent}"
    exclude:
      - "drafts/**"
  wiki:
    source: ~/notes
    destination: Notes
    format: markdown
    direction: push
    git_safety: warn
`

const sampleTOML = `
default_profile = "docs"

[remote]
url = "https://trac.example.com/project"
timeout = "45s"

[sync.docs]
source = "docs"
destination = "Docs"
direction = "pull"
git_timeout = "5s"
`

// isolate points config lookups at a fresh directory and runs from it.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("DOCSYNC_CONFIG", "")
	for _, key := range []string{
		"DOCSYNC_REMOTE_URL", "DOCSYNC_REMOTE_USERNAME", "DOCSYNC_REMOTE_PASSWORD",
		"DOCSYNC_REMOTE_INSECURE", "DOCSYNC_REMOTE_TIMEOUT", "DOCSYNC_STATE_DIR",
		"DOCSYNC_LOG_LEVEL", "DOCSYNC_LOG_FILE", "DOCSYNC_LOG_JSON", "DOCSYNC_BACKUP_ENABLED",
	} {
		t.Setenv(key, "")
	}
	t.Chdir(dir)
	return dir
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Remote.Timeout != 60*time.Second {
		t.Errorf("Remote.Timeout = %v, want 60s", cfg.Remote.Timeout)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
	if !cfg.Backup.Enabled || cfg.Backup.MaxPerFile != 10 {
		t.Errorf("Backup = %+v, want enabled with 10 per file", cfg.Backup)
	}
	if cfg.Sync == nil || len(cfg.Sync) != 0 {
		t.Errorf("Sync = %v, want empty map", cfg.Sync)
	}

	p := DefaultProfile()
	if p.Direction != string(model.DirectionBidirectional) || p.GitSafety != string(model.GitSafetyBlock) {
		t.Errorf("DefaultProfile() = %+v", p)
	}
	if p.ConflictStrategy != string(sync.StrategyInteractive) || p.StateDir != state.DefaultDir {
		t.Errorf("DefaultProfile() = %+v", p)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	util.AssertNoError(t, err)
	if len(cfg.Sync) != 0 || cfg.Remote.URL != "" {
		t.Errorf("Load() = %+v, want defaults", cfg)
	}
	if Exists() {
		t.Error("Exists() = true without a config file")
	}
}

func TestLoadFromPath_YAML(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.yaml")
	util.WriteFile(t, path, sampleYAML)

	cfg, err := LoadFromPath(path)
	util.AssertNoError(t, err)

	if cfg.Remote.URL != "https://trac.example.com/project" || cfg.Remote.Timeout != 30*time.Second {
		t.Errorf("Remote = %+v", cfg.Remote)
	}
	if got := cfg.ProfileNames(); strings.Join(got, ",") != "docs,wiki" {
		t.Errorf("ProfileNames() = %v", got)
	}

	docs := cfg.Sync["docs"]
	if docs.ConflictStrategy != "markers" || docs.Direction != "bidirectional" || docs.Format != "tracwiki" {
		t.Errorf("docs profile = %+v", docs)
	}
	if len(docs.Mappings) != 1 || docs.Mappings[0].Namespace != "Guide/{parent}" {
		t.Errorf("docs mappings = %+v", docs.Mappings)
	}
	if docs.GitTimeout != 10*time.Second {
		t.Errorf("docs GitTimeout = %v, want default", docs.GitTimeout)
	}

	util.AssertNoError(t, cfg.Validate())
}

func TestLoadFromPath_TOML(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")
	util.WriteFile(t, path, sampleTOML)

	cfg, err := LoadFromPath(path)
	util.AssertNoError(t, err)

	if cfg.Remote.Timeout != 45*time.Second {
		t.Errorf("Remote.Timeout = %v, want 45s", cfg.Remote.Timeout)
	}
	docs := cfg.Sync["docs"]
	if docs.Direction != "pull" || docs.GitTimeout != 5*time.Second {
		t.Errorf("docs profile = %+v", docs)
	}
}

func TestLoadFromPath_Errors(t *testing.T) {
	dir := isolate(t)

	if _, err := LoadFromPath(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("LoadFromPath(missing) expected error")
	}

	bad := filepath.Join(dir, "bad.yaml")
	util.WriteFile(t, bad, "sync: [not, a, map")
	if _, err := LoadFromPath(bad); err == nil {
		t.Error("LoadFromPath(bad yaml) expected error")
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.yaml")
	util.WriteFile(t, path, sampleYAML)
	t.Setenv("DOCSYNC_CONFIG", path)
	t.Setenv("DOCSYNC_REMOTE_URL", "https://other.example.com")
	t.Setenv("DOCSYNC_REMOTE_INSECURE", "yes")
	t.Setenv("DOCSYNC_REMOTE_TIMEOUT", "15")
	t.Setenv("DOCSYNC_STATE_DIR", "/var/lib/docsync")
	t.Setenv("DOCSYNC_LOG_JSON", "true")
	t.Setenv("DOCSYNC_BACKUP_ENABLED", "false")

	cfg, err := Load()
	util.AssertNoError(t, err)

	if cfg.Remote.URL != "https://other.example.com" || !cfg.Remote.Insecure {
		t.Errorf("Remote = %+v", cfg.Remote)
	}
	if cfg.Remote.Timeout != 15*time.Second {
		t.Errorf("Remote.Timeout = %v, want 15s", cfg.Remote.Timeout)
	}
	if cfg.Sync["docs"].StateDir != "/var/lib/docsync" || cfg.Sync["wiki"].StateDir != "/var/lib/docsync" {
		t.Errorf("StateDir not overridden: %+v", cfg.Sync)
	}
	if !cfg.Log.JSON {
		t.Error("Log.JSON = false, want true")
	}
	if cfg.Backup.Enabled {
		t.Error("Backup.Enabled = true, want false")
	}
}

func TestDotEnv(t *testing.T) {
	dir := isolate(t)
	util.WriteFile(t, filepath.Join(dir, ".env"), "DOCSYNC_REMOTE_PASSWORD=from-dotenv\nDOCSYNC_REMOTE_USERNAME=dotenv-user\n")
	t.Setenv("DOCSYNC_REMOTE_USERNAME", "from-env")
	t.Cleanup(func() { _ = os.Unsetenv("DOCSYNC_REMOTE_PASSWORD") })
	_ = os.Unsetenv("DOCSYNC_REMOTE_PASSWORD")

	cfg, err := Load()
	util.AssertNoError(t, err)

	if cfg.Remote.Password != "from-dotenv" {
		t.Errorf("Password = %q, want value from .env", cfg.Remote.Password)
	}
	if cfg.Remote.Username != "from-env" {
		t.Errorf("Username = %q, want the environment to win over .env", cfg.Remote.Username)
	}
}

func TestProfile(t *testing.T) {
	cfg := Default()
	cfg.Sync["docs"] = Profile{Source: "docs", Destination: "Docs"}

	name, p, err := cfg.Profile("")
	util.AssertNoError(t, err)
	if name != "docs" || p.Format != "tracwiki" {
		t.Errorf("Profile(\"\") = %q, %+v", name, p)
	}

	cfg.Sync["wiki"] = Profile{Source: "notes", Destination: "Notes"}
	if _, _, err := cfg.Profile(""); err == nil {
		t.Error("Profile(\"\") with two profiles and no default expected error")
	}

	_, _, err = cfg.Profile("nope")
	if err == nil || !strings.Contains(err.Error(), "docs, wiki") {
		t.Errorf("Profile(nope) error = %v, want available profiles listed", err)
	}

	cfg.DefaultProfile = "wiki"
	if name, _, err := cfg.Profile(""); err != nil || name != "wiki" {
		t.Errorf("Profile(\"\") = %q, %v, want wiki", name, err)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "loud"
	cfg.DefaultProfile = "missing"
	cfg.Sync["bad"] = Profile{
		Format:           "html",
		Direction:        "sideways",
		ConflictStrategy: "newest",
		GitSafety:        "maybe",
		Exclude:          []string{"[unclosed"},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error")
	}
	for _, want := range []string{
		"log.level",
		"default_profile",
		"sync.bad: source is required",
		"destination is required",
		"html",
		"sideways",
		"newest",
		"maybe",
		"invalid exclude pattern",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate() error does not mention %q:\n%v", want, err)
		}
	}
}

func TestSaveToPath(t *testing.T) {
	dir := isolate(t)
	cfg := Default()
	cfg.Remote.URL = "https://trac.example.com"
	cfg.Sync["docs"] = DefaultProfile()
	p := cfg.Sync["docs"]
	p.Source, p.Destination = "docs", "Docs"
	cfg.Sync["docs"] = p

	for _, name := range []string{"out.yaml", "out.toml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, "nested", name)
			util.AssertNoError(t, cfg.SaveToPath(path))

			info, err := os.Stat(path)
			util.AssertNoError(t, err)
			if info.Mode().Perm() != 0o600 {
				t.Errorf("mode = %v, want 0600", info.Mode().Perm())
			}

			loaded, err := LoadFromPath(path)
			util.AssertNoError(t, err)
			if loaded.Remote.URL != cfg.Remote.URL || loaded.Sync["docs"].Destination != "Docs" {
				t.Errorf("reloaded config = %+v", loaded)
			}
		})
	}
}

func TestProfilePaths(t *testing.T) {
	p := Profile{Source: "docs", StateDir: ".docsync"}
	if got := p.SourceRoot("/work"); got != filepath.Join("/work", "docs") {
		t.Errorf("SourceRoot() = %q", got)
	}
	if got := p.StatePath("/work"); got != filepath.Join("/work", ".docsync") {
		t.Errorf("StatePath() = %q", got)
	}

	abs := Profile{Source: "/srv/docs"}
	if got := abs.SourceRoot("/work"); got != "/srv/docs" {
		t.Errorf("SourceRoot() = %q, want absolute path unchanged", got)
	}

	if got := (Profile{ConflictStrategy: "bogus"}).GetStrategy(); got != sync.DefaultStrategy {
		t.Errorf("GetStrategy() = %v, want default", got)
	}
}
