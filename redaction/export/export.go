// Copyright 2026 The scrubd Authors.
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see the LICENSE file in the repository root for full details.

// Package export writes the per-user PII audit artifact. Repeated exports
// for the same user accumulate: the existing artifact is read, merged
// with the new record, de-duplicated and written back, so the audit
// trail survives multiple runs across different databases.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
)

// Record is the accumulated PII for one user. Fields are formatted
// "<field>: <value> (<database-id>)" lines; account-level values (email,
// real name, gender) are formatted the same way by the exporter.
type Record struct {
	User   string   `json:"user"`
	Fields []string `json:"fields"`
}

// FormatField renders one discovered value in the artifact line format.
func FormatField(field, value, database string) string {
	return fmt.Sprintf("%s: %s (%s)", field, value, database)
}

// Store reads and writes artifacts in one directory, in either "csv" or
// "json" format.
type Store struct {
	Dir    string
	Format string
}

func NewStore(dir, format string) *Store {
	return &Store{Dir: dir, Format: format}
}

func (s *Store) Path(user string) string {
	return filepath.Join(s.Dir, artifactName(user)+"."+s.Format)
}

// artifactName escapes a username for use as a filename, so that names
// carrying path separators cannot address files outside the store
// directory.
func artifactName(user string) string {
	return url.PathEscape(user)
}

// Merge unions the record with any existing artifact for the same user
// and writes the result. Empty fields and duplicates are dropped, so the
// resulting field set is the union of all runs' non-empty fields.
func (s *Store) Merge(record *Record) error {
	existing, err := s.Load(record.User)
	if err != nil {
		return err
	}
	merged := &Record{User: record.User}
	seen := map[string]struct{}{}
	for _, field := range append(append([]string{}, record.Fields...), existing.Fields...) {
		if field == "" {
			continue
		}
		if _, ok := seen[field]; ok {
			continue
		}
		seen[field] = struct{}{}
		merged.Fields = append(merged.Fields, field)
	}
	return s.write(merged)
}

// Load reads the current artifact for a user. A missing artifact is an
// empty record, not an error.
func (s *Store) Load(user string) (*Record, error) {
	contents, err := os.ReadFile(s.Path(user))
	if os.IsNotExist(err) {
		return &Record{User: user}, nil
	}
	if err != nil {
		return nil, err
	}
	record := &Record{User: user}
	switch s.Format {
	case "json":
		if err := json.Unmarshal(contents, record); err != nil {
			return nil, fmt.Errorf("reading existing artifact for %q: %w", user, err)
		}
	case "csv":
		reader := csv.NewReader(bytes.NewReader(contents))
		reader.FieldsPerRecord = -1
		rows, err := reader.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("reading existing artifact for %q: %w", user, err)
		}
		for _, row := range rows {
			record.Fields = append(record.Fields, row...)
		}
	default:
		return nil, fmt.Errorf("unknown export format %q", s.Format)
	}
	return record, nil
}

func (s *Store) write(record *Record) error {
	if err := os.MkdirAll(s.Dir, 0o700); err != nil {
		return err
	}
	file, err := os.CreateTemp(s.Dir, "."+artifactName(record.User)+"-*")
	if err != nil {
		return err
	}
	defer os.Remove(file.Name()) // nolint: errcheck
	switch s.Format {
	case "json":
		encoder := json.NewEncoder(file)
		encoder.SetIndent("", "  ")
		err = encoder.Encode(record)
	case "csv":
		writer := csv.NewWriter(file)
		for _, field := range record.Fields {
			if err = writer.Write([]string{field}); err != nil {
				break
			}
		}
		if err == nil {
			writer.Flush()
			err = writer.Error()
		}
	default:
		err = fmt.Errorf("unknown export format %q", s.Format)
	}
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}
	// Atomic replace so a crashed export never leaves a truncated
	// artifact behind.
	return os.Rename(file.Name(), s.Path(record.User))
}
