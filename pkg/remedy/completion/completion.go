// Package completion compares a stage's input with its progress file and
// lists the remedies that are still missing.
package completion

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"

	"github.com/cognicore/herba/pkg/remedy"
	"github.com/cognicore/herba/pkg/remedy/internalerr"
)

// Report summarizes how far an enhancement run got.
type Report struct {
	InputTotal     int
	ProcessedTotal int
	Missing        []string
}

// Done reports whether every input remedy was processed.
func (r Report) Done() bool { return len(r.Missing) == 0 }

// Write prints the report in a human-readable form.
func (r Report) Write(w io.Writer) error {
	_, err := fmt.Fprintf(w, "\nTotal input remedies: %d\nTotal processed remedies: %d\nMissing remedies: %d\n",
		r.InputTotal, r.ProcessedTotal, len(r.Missing))
	if err != nil {
		return err
	}
	if r.Done() {
		_, err = fmt.Fprintln(w, "\nAll remedies have been processed!")
		return err
	}
	if _, err := fmt.Fprintln(w, "\nMissing remedies:"); err != nil {
		return err
	}
	for _, name := range r.Missing {
		if _, err := fmt.Fprintf(w, "- %s\n", name); err != nil {
			return err
		}
	}
	return nil
}

// Check compares the input file against the checkpoint file. A missing
// checkpoint counts as nothing processed.
func Check(inputPath, checkpointPath string) (Report, error) {
	inputData, err := os.ReadFile(inputPath)
	if err != nil {
		return Report{}, fmt.Errorf("read input: %w", err)
	}
	input, err := Names(inputData)
	if err != nil {
		return Report{}, fmt.Errorf("%s: %w", inputPath, err)
	}

	processed := map[string]struct{}{}
	if data, err := os.ReadFile(checkpointPath); err == nil {
		if processed, err = Names(data); err != nil {
			return Report{}, fmt.Errorf("%s: %w", checkpointPath, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return Report{}, fmt.Errorf("read checkpoint: %w", err)
	}

	return Compare(input, processed), nil
}

// Compare builds a report from two name sets.
func Compare(input, processed map[string]struct{}) Report {
	r := Report{InputTotal: len(input), ProcessedTotal: len(processed), Missing: []string{}}
	for name := range input {
		if _, ok := processed[name]; !ok {
			r.Missing = append(r.Missing, name)
		}
	}
	sort.Strings(r.Missing)
	return r
}

// Names collects the distinct remedy names in a JSON array. Objects
// contribute their name ("Unnamed" when absent); nested arrays contribute the
// names of the objects inside them.
func Names(data []byte) (map[string]struct{}, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrInvalidInput, err)
	}
	names := make(map[string]struct{}, len(items))
	for _, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) == 0 {
			continue
		}
		switch item[0] {
		case '{':
			names[objectName(item)] = struct{}{}
		case '[':
			var nested []json.RawMessage
			if err := json.Unmarshal(item, &nested); err != nil {
				continue
			}
			for _, n := range nested {
				n = bytes.TrimSpace(n)
				if len(n) > 0 && n[0] == '{' {
					names[objectName(n)] = struct{}{}
				}
			}
		}
	}
	return names, nil
}

func objectName(obj json.RawMessage) string {
	var fields struct {
		Name json.RawMessage `json:"name"`
	}
	if err := json.Unmarshal(obj, &fields); err != nil || fields.Name == nil {
		return "Unnamed"
	}
	return remedy.Record{Name: remedy.FlexName(fields.Name)}.DisplayName()
}
