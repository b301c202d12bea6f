package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/backoffice/internal/ui"
)

// withStateDir points remotes.toml into a fresh directory.
func withStateDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", dir)
	ui.ForceNoColor()
	return dir
}

// runRemote runs one remote subcommand and returns its output.
func runRemote(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	err := cmd.RunE(cmd, args)
	return out.String(), err
}

func mustRunRemote(t *testing.T, cmd *cobra.Command, args ...string) string {
	t.Helper()
	out, err := runRemote(t, cmd, args...)
	if err != nil {
		t.Fatalf("%s %v: %v", cmd.Name(), args, err)
	}
	return out
}

func TestRemoteFile_WriteRead(t *testing.T) {
	withStateDir(t)
	want := &remoteFile{
		Active: "prod",
		Remotes: map[string]Remote{
			"prod":  {URL: "https://admin.example.com", Token: "tok_abc", NATSURL: "nats://prod:4222"},
			"local": {URL: "http://localhost:8080", Description: "laptop"},
		},
	}
	if err := want.write(); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := readRemotes()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("remotes (-want +got):\n%s", diff)
	}
}

func TestReadRemotes_Missing(t *testing.T) {
	withStateDir(t)
	f, err := readRemotes()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if f.Active != "" || f.Remotes == nil || len(f.Remotes) != 0 {
		t.Errorf("missing file read as %+v, want empty with a map", f)
	}
}

func TestReadRemotes_Malformed(t *testing.T) {
	dir := withStateDir(t)
	path := filepath.Join(dir, "backoffice", "remotes.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("active = [unterminated"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := readRemotes(); err == nil {
		t.Fatal("malformed file read without error")
	}
}

func TestRemoteFile_WriteIsPrivate(t *testing.T) {
	dir := withStateDir(t)
	if err := (&remoteFile{Remotes: map[string]Remote{}}).write(); err != nil {
		t.Fatalf("write: %v", err)
	}
	for path, want := range map[string]os.FileMode{
		filepath.Join(dir, "backoffice"):                 0o700,
		filepath.Join(dir, "backoffice", "remotes.toml"): 0o600,
	} {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatal(err)
		}
		if got := info.Mode().Perm(); got != want {
			t.Errorf("%s mode = %04o, want %04o", path, got, want)
		}
	}
	leftovers, _ := filepath.Glob(filepath.Join(dir, "backoffice", ".remotes-*"))
	if len(leftovers) != 0 {
		t.Errorf("temp files left behind: %v", leftovers)
	}
}

func TestRemoteCommands(t *testing.T) {
	withStateDir(t)

	mustRunRemote(t, remoteAddCmd, "staging", "https://staging.example.com")
	mustRunRemote(t, remoteAddCmd, "local", "http://localhost:9000/")
	mustRunRemote(t, remoteAddCmd, "local", "http://localhost:8080/")
	mustRunRemote(t, remoteUseCmd, "local")

	f, _ := readRemotes()
	if f.Active != "local" {
		t.Errorf("active = %q, want local", f.Active)
	}
	if got := f.Remotes["local"].URL; got != "http://localhost:8080" {
		t.Errorf("local url = %q, want the second add without its slash", got)
	}

	list := mustRunRemote(t, remoteListCmd)
	if !strings.Contains(list, "* local") {
		t.Errorf("list does not star the active remote:\n%s", list)
	}
	if strings.Index(list, "local") > strings.Index(list, "staging") {
		t.Errorf("list is not sorted:\n%s", list)
	}

	show := mustRunRemote(t, remoteShowCmd)
	for _, want := range []string{"local (active)", "http://localhost:8080"} {
		if !strings.Contains(show, want) {
			t.Errorf("show output lacks %q:\n%s", want, show)
		}
	}
	if show := mustRunRemote(t, remoteShowCmd, "staging"); strings.Contains(show, "(active)") {
		t.Errorf("staging shown as active:\n%s", show)
	}

	mustRunRemote(t, remoteRemoveCmd, "local")
	f, _ = readRemotes()
	if _, ok := f.Remotes["local"]; ok || f.Active != "" {
		t.Errorf("after remove: %+v", f)
	}

	mustRunRemote(t, remoteUseCmd, "staging")
	if out := mustRunRemote(t, remoteUseCmd); !strings.Contains(out, "no active remote") {
		t.Errorf("use without name printed %q", out)
	}
	if f, _ = readRemotes(); f.Active != "" {
		t.Errorf("active = %q after clearing", f.Active)
	}
}

func TestRemoteCommands_RedactTokens(t *testing.T) {
	withStateDir(t)
	if err := remoteAddCmd.Flags().Set("token", "tok_verylongsecret"); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { remoteAddCmd.Flags().Set("token", "") })

	mustRunRemote(t, remoteAddCmd, "prod", "https://admin.example.com")
	mustRunRemote(t, remoteUseCmd, "prod")

	for _, tc := range []struct {
		cmd  *cobra.Command
		want string
	}{
		{remoteListCmd, "tok_very..."},
		{remoteShowCmd, "tok_very**********"},
	} {
		out := mustRunRemote(t, tc.cmd)
		if strings.Contains(out, "tok_verylongsecret") {
			t.Errorf("%s leaks the token:\n%s", tc.cmd.Name(), out)
		}
		if !strings.Contains(out, tc.want) {
			t.Errorf("%s output lacks %q:\n%s", tc.cmd.Name(), tc.want, out)
		}
	}
}

func TestRemoteCommands_Errors(t *testing.T) {
	for _, tc := range []struct {
		name string
		cmd  *cobra.Command
		args []string
		want string
	}{
		{"use unknown", remoteUseCmd, []string{"ghost"}, `unknown remote "ghost"`},
		{"remove unknown", remoteRemoveCmd, []string{"ghost"}, `unknown remote "ghost"`},
		{"show unknown", remoteShowCmd, []string{"ghost"}, `unknown remote "ghost"`},
		{"show without active", remoteShowCmd, nil, "no active remote"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			withStateDir(t)
			_, err := runRemote(t, tc.cmd, tc.args...)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error = %v, want %q", err, tc.want)
			}
		})
	}
}

func TestRedactToken(t *testing.T) {
	for _, tc := range []struct {
		token string
		pad   bool
		want  string
	}{
		{"", false, ""},
		{"short", true, "short"},
		{"12345678", false, "12345678"},
		{"123456789", false, "12345678..."},
		{"123456789ab", true, "12345678***"},
	} {
		if got := redactToken(tc.token, tc.pad); got != tc.want {
			t.Errorf("redactToken(%q, %v) = %q, want %q", tc.token, tc.pad, got, tc.want)
		}
	}
}
