package main

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/backoffice/internal/ui"
)

// Remote is a named backoffice server the CLI can talk to.
type Remote struct {
	URL         string `toml:"url"`
	Token       string `toml:"token,omitempty"`
	NATSURL     string `toml:"nats_url,omitempty"`
	Description string `toml:"description,omitempty"`
}

// remoteFile is the on-disk remotes.toml.
type remoteFile struct {
	Active  string            `toml:"active"`
	Remotes map[string]Remote `toml:"remotes"`
}

// lookup returns the named remote, or the active one when name is empty.
func (f *remoteFile) lookup(name string) (string, Remote, error) {
	if name == "" {
		name = f.Active
	}
	if name == "" {
		return "", Remote{}, errors.New("no active remote; name one or run 'backoffice remote use <name>'")
	}
	r, ok := f.Remotes[name]
	if !ok {
		return "", Remote{}, fmt.Errorf("unknown remote %q", name)
	}
	return name, r, nil
}

// remotesPath returns $XDG_STATE_HOME/backoffice/remotes.toml, with
// ~/.local/state standing in for an unset XDG_STATE_HOME.
func remotesPath() (string, error) {
	state := os.Getenv("XDG_STATE_HOME")
	if state == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		state = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(state, "backoffice", "remotes.toml"), nil
}

// readRemotes loads remotes.toml. A missing file reads as empty.
func readRemotes() (*remoteFile, error) {
	path, err := remotesPath()
	if err != nil {
		return nil, err
	}
	f := &remoteFile{}
	if _, err := toml.DecodeFile(path, f); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if f.Remotes == nil {
		f.Remotes = make(map[string]Remote)
	}
	return f, nil
}

// write replaces remotes.toml through a temp file in the same directory.
// The file holds tokens, so both it and its directory are private.
func (f *remoteFile) write() error {
	path, err := remotesPath()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".remotes-*.toml")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := toml.NewEncoder(tmp).Encode(f); err != nil {
		tmp.Close()
		return fmt.Errorf("encoding remotes: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// editRemotes loads remotes.toml, applies fn and writes the result back.
func editRemotes(fn func(*remoteFile) error) error {
	f, err := readRemotes()
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		return err
	}
	return f.write()
}

// activeRemote is the remote chosen with "remote use", read once per
// process. It is the zero Remote when none is chosen or the file is broken.
var activeRemote = sync.OnceValue(func() Remote {
	f, err := readRemotes()
	if err != nil || f.Active == "" {
		return Remote{}
	}
	return f.Remotes[f.Active]
})

func activeRemoteURL() string     { return activeRemote().URL }
func activeRemoteToken() string   { return activeRemote().Token }
func activeRemoteNATSURL() string { return activeRemote().NATSURL }

// redactToken shows the first eight characters of a token. Short tokens are
// shown as they are. With pad set, the hidden part is replaced by as many
// asterisks, otherwise by an ellipsis.
func redactToken(token string, pad bool) string {
	const visible = 8
	if len(token) <= visible {
		return token
	}
	if pad {
		return token[:visible] + strings.Repeat("*", len(token)-visible)
	}
	return token[:visible] + "..."
}

var remoteCmd = &cobra.Command{
	Use:     "remote",
	Short:   "Manage named backoffice servers",
	GroupID: "system",
	// Only the local remotes file is touched; no client is needed.
	PersistentPreRunE: localCmd,
}

var remoteAddCmd = &cobra.Command{
	Use:     "add <name> <url>",
	Short:   "Add a remote, or replace one with the same name",
	Example: "  backoffice remote add prod https://admin.example.com --token $TOKEN --nats nats://prod:4222",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		r := Remote{URL: strings.TrimRight(args[1], "/")}
		r.Token, _ = cmd.Flags().GetString("token")
		r.NATSURL, _ = cmd.Flags().GetString("nats")
		r.Description, _ = cmd.Flags().GetString("description")
		err := editRemotes(func(f *remoteFile) error {
			f.Remotes[args[0]] = r
			return nil
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "remote %s -> %s\n", args[0], r.URL)
		return nil
	},
}

var remoteRemoveCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm"},
	Short:   "Forget a remote",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		err := editRemotes(func(f *remoteFile) error {
			name, _, err := f.lookup(args[0])
			if err != nil {
				return err
			}
			delete(f.Remotes, name)
			if f.Active == name {
				f.Active = ""
			}
			return nil
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "remote %s removed\n", args[0])
		return nil
	},
}

var remoteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List remotes; the active one is starred",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := readRemotes()
		if err != nil {
			return err
		}
		if len(f.Remotes) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), ui.RenderMuted("no remotes; add one with 'backoffice remote add'"))
			return nil
		}
		var rows [][]string
		for _, name := range slices.Sorted(maps.Keys(f.Remotes)) {
			r := f.Remotes[name]
			mark := "  "
			if name == f.Active {
				mark = "* "
			}
			rows = append(rows, []string{mark + name, r.URL, redactToken(r.Token, false), r.Description})
		}
		printTable(cmd.OutOrStdout(), []string{"  NAME", "URL", "TOKEN", "DESCRIPTION"}, rows)
		return nil
	},
}

var remoteUseCmd = &cobra.Command{
	Use:   "use [name]",
	Short: "Make a remote the default; without a name, go back to flags and env",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var active string
		err := editRemotes(func(f *remoteFile) error {
			f.Active = ""
			if len(args) == 1 {
				name, _, err := f.lookup(args[0])
				if err != nil {
					return err
				}
				f.Active = name
			}
			active = f.Active
			return nil
		})
		if err != nil {
			return err
		}
		if active == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "no active remote")
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "using remote %s\n", active)
		}
		return nil
	},
}

var remoteShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show a remote (the active one by default)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := readRemotes()
		if err != nil {
			return err
		}
		var want string
		if len(args) == 1 {
			want = args[0]
		}
		name, r, err := f.lookup(want)
		if err != nil {
			return err
		}
		title := name
		if name == f.Active {
			title += ui.RenderMuted(" (active)")
		}
		w := cmd.OutOrStdout()
		fmt.Fprintln(w, ui.RenderHeader(title))
		for _, kv := range [][2]string{
			{"url", r.URL},
			{"token", redactToken(r.Token, true)},
			{"nats", r.NATSURL},
			{"description", r.Description},
		} {
			if kv[1] != "" {
				fmt.Fprintf(w, "  %-12s %s\n", kv[0], kv[1])
			}
		}
		return nil
	},
}

func init() {
	remoteAddCmd.Flags().String("token", "", "service or session token sent as a Bearer header")
	remoteAddCmd.Flags().String("nats", "", "NATS URL used by watch")
	remoteAddCmd.Flags().String("description", "", "free-form note shown by list and show")

	remoteCmd.AddCommand(remoteAddCmd, remoteRemoveCmd, remoteListCmd, remoteUseCmd, remoteShowCmd)
}
