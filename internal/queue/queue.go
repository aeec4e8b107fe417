// Package queue implements the durable per account queue of pending calls.
//
// The queue is read once when opened, mutated in memory, and written back in
// full by Flush, which renames the previous file to <name>.bak first. Entry
// order is insertion order and is preserved; the send pipeline relies on it.
package queue

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/davecheney/ferry/internal/draft"
	"github.com/davecheney/ferry/internal/media"
)

// Entry is one queued call.
type Entry struct {
	Route    Route
	Argument string // remote status id, or staged draft filename for POST
}

func (e Entry) String() string {
	return fmt.Sprintf("%s %s", e.Route, e.Argument)
}

// Queue is a durable queue held in memory.
type Queue struct {
	path    string
	staging string
	entries []Entry
	dirty   bool
}

// Open reads the queue backing file at path. staging names the directory
// draft copies are staged into; it is created lazily. A missing backing
// file yields an empty queue.
func Open(path, staging string) (*Queue, error) {
	q := &Queue{path: path, staging: staging}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return q, nil
		}
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		token, arg, ok := strings.Cut(line, " ")
		if !ok {
			return nil, fmt.Errorf("queue: malformed line %q in %s", line, path)
		}
		route, err := ParseRoute(token)
		if err != nil {
			return nil, err
		}
		q.entries = append(q.entries, Entry{Route: route, Argument: strings.TrimSpace(arg)})
	}
	return q, scanner.Err()
}

// Entries returns the queued entries in order. The slice is a copy; mutating
// it does not affect the queue.
func (q *Queue) Entries() []Entry {
	return append([]Entry(nil), q.entries...)
}

// Len returns the number of queued entries.
func (q *Queue) Len() int { return len(q.entries) }

// StagedPath returns the path of a staged draft file.
func (q *Queue) StagedPath(name string) string {
	return filepath.Join(q.staging, name)
}

func (q *Queue) contains(e Entry) bool {
	for _, have := range q.entries {
		if have == e {
			return true
		}
	}
	return false
}

// Enqueue appends (route, id) pairs in input order, skipping pairs already
// queued. For the POST route each id is a local draft path; the draft and
// its attachments are staged and the staged filename is queued instead.
// A draft that cannot be staged is reported and skipped; it does not fail
// the batch. Returns how many ids were queued and how many were skipped.
func (q *Queue) Enqueue(route Route, ids []string) (queued, skipped int) {
	for _, id := range ids {
		arg := id
		if route == Post {
			staged, err := q.stage(id)
			if err != nil {
				log.Printf("queue: skipping %s: %v", id, err)
				skipped++
				continue
			}
			arg = staged
		}
		e := Entry{Route: route, Argument: arg}
		if route != Post && q.contains(e) {
			skipped++
			continue
		}
		q.entries = append(q.entries, e)
		q.dirty = true
		queued++
	}
	return queued, skipped
}

// Dequeue removes matching (route, id) entries. An id that is not queued
// gets the inverse route appended instead: dequeue means "ensure this does
// not happen", not "cancel if pending". Context entries have no inverse and
// absent ids are dropped. Removed POST entries also lose their staged copy.
func (q *Queue) Dequeue(route Route, ids []string) (removed int) {
	for _, id := range ids {
		e := Entry{Route: route, Argument: id}
		if q.contains(e) {
			q.remove(e)
			removed++
			continue
		}
		inv, ok := route.Inverse()
		if !ok {
			continue
		}
		if !q.contains(Entry{Route: inv, Argument: id}) {
			q.entries = append(q.entries, Entry{Route: inv, Argument: id})
			q.dirty = true
		}
	}
	return removed
}

// Complete removes an exact entry after it has been sent. Unlike Dequeue it
// never substitutes an inverse. Removed POST entries lose their staged copy.
func (q *Queue) Complete(e Entry) {
	if q.contains(e) {
		q.remove(e)
	}
}

func (q *Queue) remove(e Entry) {
	for i, have := range q.entries {
		if have == e {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			q.dirty = true
			break
		}
	}
	if e.Route == Post {
		q.removeStaged(e.Argument)
	}
}

// Clear removes every entry whose route is route or its inverse. Clearing
// POST also removes the staging directory tree.
func (q *Queue) Clear(route Route) {
	inv, _ := route.Inverse()
	var kept []Entry
	for _, e := range q.entries {
		if e.Route == route || e.Route == inv {
			q.dirty = true
			continue
		}
		kept = append(kept, e)
	}
	q.entries = kept
	if route == Post || inv == Post {
		if err := os.RemoveAll(q.staging); err != nil {
			log.Printf("queue: removing staging dir: %v", err)
		}
	}
}

// Flush rewrites the backing file if the queue changed, renaming the
// previous version to <name>.bak first. An empty queue still writes an
// empty file so the .bak generation stays consistent.
func (q *Queue) Flush() error {
	if !q.dirty {
		return nil
	}
	if _, err := os.Stat(q.path); err == nil {
		if err := os.Rename(q.path, q.path+".bak"); err != nil {
			return err
		}
	}
	f, err := os.Create(q.path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	for _, e := range q.entries {
		fmt.Fprintln(w, e.String())
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	q.dirty = false
	return nil
}

// stage copies the draft at src, and its attachments, into the staging
// directory. Attachments are canonicalised on the way in. Returns the
// staged draft filename.
func (q *Queue) stage(src string) (string, error) {
	post, err := draft.Read(src)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(q.staging, 0o700); err != nil {
		return "", err
	}
	base := uuid.New().String()
	for i, a := range post.Attachments {
		name := q.stagedName(fmt.Sprintf("%s-%d%s", base, i, filepath.Ext(a.Path)))
		if err := media.Stage(a.Path, filepath.Join(q.staging, name)); err != nil {
			return "", err
		}
		post.Attachments[i].Path = name
	}
	name := q.stagedName(base)
	if err := draft.Write(filepath.Join(q.staging, name), post); err != nil {
		return "", err
	}
	return name, nil
}

// stagedName resolves collisions in the staging directory by appending a
// numeric suffix.
func (q *Queue) stagedName(name string) string {
	candidate := name
	for n := 1; ; n++ {
		if _, err := os.Stat(filepath.Join(q.staging, candidate)); os.IsNotExist(err) {
			return candidate
		}
		candidate = fmt.Sprintf("%s-%d", name, n)
	}
}

// removeStaged deletes a staged draft and its staged attachments.
func (q *Queue) removeStaged(name string) {
	path := filepath.Join(q.staging, name)
	post, err := draft.Read(path)
	if err == nil {
		for _, a := range post.Attachments {
			if err := os.Remove(filepath.Join(q.staging, a.Path)); err != nil && !os.IsNotExist(err) {
				log.Printf("queue: removing staged attachment %s: %v", a.Path, err)
			}
		}
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("queue: removing staged draft %s: %v", name, err)
	}
}
