// Package checkpoint persists partial enrichment progress so an interrupted
// run resumes where it stopped.
package checkpoint

import (
	"errors"
	"io/fs"
	"os"
	"sync"

	"github.com/cognicore/herba/pkg/remedy"
)

// File is a progress file holding every record enriched so far. A File is
// safe for concurrent use.
type File struct {
	path string

	mu      sync.Mutex
	records []remedy.Record
	names   map[string]struct{}
}

// Open loads the progress file at path. A missing file starts empty.
func Open(path string) (*File, error) {
	f := &File{path: path, names: make(map[string]struct{})}
	records, _, err := remedy.ReadRecords(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return f, nil
		}
		return nil, err
	}
	f.records = records
	for _, r := range records {
		f.names[r.DisplayName()] = struct{}{}
	}
	return f, nil
}

// Path returns the file location.
func (f *File) Path() string { return f.path }

// Len returns the number of records saved so far.
func (f *File) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

// Done reports whether a record with this name was already processed.
func (f *File) Done(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.names[name]
	return ok
}

// Append adds a record and rewrites the file.
func (f *File) Append(r remedy.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, r)
	f.names[r.DisplayName()] = struct{}{}
	return remedy.WriteRecords(f.path, f.records)
}

// Records returns a copy of the saved records in append order.
func (f *File) Records() []remedy.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]remedy.Record(nil), f.records...)
}

// Remove deletes the progress file. A missing file is not an error.
func (f *File) Remove() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
