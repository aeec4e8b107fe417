// Package ferry manages the on disk layout of accounts. Each account is a
// directory holding an option file, a queue file, a staging directory for
// queued drafts, and the append only timeline and notification logs.
package ferry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/davecheney/ferry/internal/options"
	"github.com/davecheney/ferry/internal/queue"
)

// An Account is one account directory, with its options loaded.
type Account struct {
	Name    string
	Dir     string
	Options *options.File
}

// Open loads the account directory at dir.
func Open(dir string) (*Account, error) {
	opts, err := options.Open(filepath.Join(dir, "options"))
	if err != nil {
		return nil, err
	}
	return &Account{
		Name:    filepath.Base(dir),
		Dir:     dir,
		Options: opts,
	}, nil
}

// Create makes a new account directory under root and seeds its options.
func Create(root, name, url, token string) (*Account, error) {
	dir := filepath.Join(root, name)
	if _, err := os.Stat(dir); err == nil {
		return nil, fmt.Errorf("account %s already exists", name)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	account, err := Open(dir)
	if err != nil {
		return nil, err
	}
	account.Options.Set(options.URL, strings.TrimRight(url, "/"))
	account.Options.Set(options.AccessToken, token)
	if err := account.Options.Flush(); err != nil {
		return nil, err
	}
	return account, nil
}

// Names lists the account names under root, sorted.
func Names(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Find resolves a unique account name prefix under root. An empty prefix
// matches only when exactly one account exists.
func Find(root, prefix string) (*Account, error) {
	names, err := Names(root)
	if err != nil {
		return nil, err
	}
	var matches []string
	for _, name := range names {
		if strings.HasPrefix(name, prefix) {
			matches = append(matches, name)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("no account matches %q", prefix)
	case 1:
		return Open(filepath.Join(root, matches[0]))
	default:
		return nil, fmt.Errorf("ambiguous account %q: matches %s", prefix, strings.Join(matches, ", "))
	}
}

// BaseURL returns the instance base URL, without a trailing slash.
func (a *Account) BaseURL() string {
	return strings.TrimRight(a.Options.GetDefault(options.URL, ""), "/")
}

// Token returns the bearer token used for every API call.
func (a *Account) Token() string {
	return a.Options.GetDefault(options.AccessToken, "")
}

// StagingDir is where queued drafts and their attachments are copied.
func (a *Account) StagingDir() string {
	return filepath.Join(a.Dir, "staging")
}

// OpenQueue loads the account's durable queue.
func (a *Account) OpenQueue() (*queue.Queue, error) {
	return queue.Open(filepath.Join(a.Dir, "queue"), a.StagingDir())
}

// LogPath returns the append only log file for a stream ("home" or
// "notifications").
func (a *Account) LogPath(stream string) string {
	return filepath.Join(a.Dir, stream+".log")
}

// ContextPath is where a fetched status thread is written.
func (a *Account) ContextPath(id string) string {
	return filepath.Join(a.Dir, id+".context")
}
