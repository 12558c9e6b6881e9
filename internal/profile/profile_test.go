package profile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidateName(t *testing.T) {
	valid := []string{"main", "work", "a", "user_1", "my-profile"}
	for _, name := range valid {
		if err := ValidateName(name); err != nil {
			t.Errorf("ValidateName(%q) = %v, want nil", name, err)
		}
	}

	invalid := []string{"", "UPPER", "has space", "a/b", strings.Repeat("x", 65)}
	for _, name := range invalid {
		if err := ValidateName(name); err == nil {
			t.Errorf("ValidateName(%q) = nil, want error", name)
		}
	}
}

func TestPathsUnderBaseDir(t *testing.T) {
	base := BaseDir()
	for _, p := range []string{Dir("main"), DBPath("main"), UserPath("main"), LogPath("main"), ConfigPath()} {
		if !strings.HasPrefix(p, base) {
			t.Errorf("path %q not under base dir %q", p, base)
		}
	}
	if filepath.Base(DBPath("main")) != "securechat.db" {
		t.Errorf("DBPath basename = %q, want securechat.db", filepath.Base(DBPath("main")))
	}
}

func TestResolvePrecedence(t *testing.T) {
	t.Setenv("SECURECHAT_PROFILE", "")
	if got := Resolve("flagged"); got != "flagged" {
		t.Errorf("Resolve with flag = %q, want flagged", got)
	}

	t.Setenv("SECURECHAT_PROFILE", "from-env")
	if got := Resolve(""); got != "from-env" {
		t.Errorf("Resolve with env = %q, want from-env", got)
	}
}

func TestLoadUser(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "profile.toml")

	content := "id = \"u1\"\nusername = \"alice\"\navatar = \"A\"\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	u, err := LoadUser(path)
	if err != nil {
		t.Fatalf("LoadUser() error = %v", err)
	}
	if u == nil || u.ID != "u1" || u.Username != "alice" {
		t.Errorf("user = %+v, want id=u1 username=alice", u)
	}
}

func TestLoadUserMissingFile(t *testing.T) {
	u, err := LoadUser(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("LoadUser() error = %v, want nil for missing file", err)
	}
	if u != nil {
		t.Errorf("user = %+v, want nil for missing file", u)
	}
}

func TestLoadUserMissingID(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "profile.toml")
	if err := os.WriteFile(path, []byte("username = \"noid\"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadUser(path); err == nil {
		t.Error("LoadUser() expected error for identity without id")
	}
}
