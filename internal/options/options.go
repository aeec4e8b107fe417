// Package options implements the per account key=value option file.
//
// The file is read once when opened, mutated in memory, and written back in
// full by Flush. Flush renames the previous version to <name>.bak before
// writing, so a crash mid write leaves at most one generation behind.
package options

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Well known option keys.
const (
	URL                string = "url"
	AccessToken        string = "access_token"
	LastHomeID         string = "last_home_id"
	LastNotificationID string = "last_notification_id"
	PullHome           string = "pull_home"
	PullNotifications  string = "pull_notifications"
	Retries            string = "retries"
	ExcludeBoosts      string = "exclude_boosts"
	ExcludeFavourites  string = "exclude_favourites"
	ExcludeFollows     string = "exclude_follows"
	ExcludeMentions    string = "exclude_mentions"
	ExcludePolls       string = "exclude_polls"
)

// File is an option file held in memory.
type File struct {
	path   string
	values map[string]string
	dirty  bool
}

// Open reads the option file at path. A missing file is not an error; it
// yields an empty set of options.
func Open(path string) (*File, error) {
	f := &File{
		path:   path,
		values: make(map[string]string),
	}
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return f, nil
		}
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("options: malformed line %q in %s", line, path)
		}
		f.values[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return f, scanner.Err()
}

// Get returns the value for key, if set.
func (f *File) Get(key string) (string, bool) {
	v, ok := f.values[key]
	return v, ok
}

// GetDefault returns the value for key, or def if unset.
func (f *File) GetDefault(key, def string) string {
	if v, ok := f.values[key]; ok {
		return v
	}
	return def
}

// All returns every option as key=value lines, sorted by key.
func (f *File) All() []string {
	keys := make([]string, 0, len(f.values))
	for k := range f.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%s=%s", k, f.values[k]))
	}
	return lines
}

// Set records key=value. The change is not durable until Flush.
func (f *File) Set(key, value string) {
	if old, ok := f.values[key]; ok && old == value {
		return
	}
	f.values[key] = value
	f.dirty = true
}

// Flush rewrites the option file if any option changed since Open or the
// previous Flush. The prior file, if any, is renamed to <name>.bak first.
func (f *File) Flush() error {
	if !f.dirty {
		return nil
	}
	if _, err := os.Stat(f.path); err == nil {
		if err := os.Rename(f.path, f.path+".bak"); err != nil {
			return err
		}
	}
	file, err := os.Create(f.path)
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(f.values))
	for k := range f.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	w := bufio.NewWriter(file)
	for _, k := range keys {
		fmt.Fprintf(w, "%s=%s\n", k, f.values[k])
	}
	if err := w.Flush(); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	f.dirty = false
	return nil
}
