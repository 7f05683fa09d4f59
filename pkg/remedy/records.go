package remedy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cognicore/herba/pkg/remedy/internalerr"
)

// DecodeRecords parses a JSON array of records. Array items that are not
// objects are skipped and counted.
func DecodeRecords(data []byte) ([]Record, int, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, 0, fmt.Errorf("%w: expected a JSON array of records", internalerr.ErrInvalidInput)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", internalerr.ErrInvalidInput, err)
	}
	records := make([]Record, 0, len(items))
	skipped := 0
	for _, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) == 0 || item[0] != '{' {
			skipped++
			continue
		}
		var rec Record
		if err := json.Unmarshal(item, &rec); err != nil {
			skipped++
			continue
		}
		records = append(records, rec)
	}
	return records, skipped, nil
}

// ReadRecords loads a record array from path.
func ReadRecords(path string) ([]Record, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("read file %s: %w", path, err)
	}
	records, skipped, err := DecodeRecords(data)
	if err != nil {
		return nil, 0, fmt.Errorf("decode %s: %w", path, err)
	}
	return records, skipped, nil
}

// EncodeRecords writes records as an indented JSON array.
func EncodeRecords(w io.Writer, records []Record) error {
	if records == nil {
		records = []Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

// WriteRecords replaces path with the encoded records. The file is written
// to a sibling temp file first and renamed into place.
func WriteRecords(path string, records []Record) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}
	if err := EncodeRecords(tmp, records); err != nil {
		tmp.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
