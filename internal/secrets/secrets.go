// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key name and the
// file contents (trimmed) are the value.
//
// Supported key files: semantic-scholar-api-key, crossref-mailto, openalex-email.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Key files the analyzer consumes.
const (
	KeySemanticScholarAPIKey = "semantic-scholar-api-key"
	KeyCrossrefMailto        = "crossref-mailto"
	KeyOpenAlexEmail         = "openalex-email"
)

var knownKeys = map[string]bool{
	KeySemanticScholarAPIKey: true,
	KeyCrossrefMailto:        true,
	KeyOpenAlexEmail:         true,
}

// KnownKeys lists the recognized key file names, sorted.
func KnownKeys() []string {
	keys := make([]string, 0, len(knownKeys))
	for k := range knownKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files and unrecognized key names produce a warning on stderr but
// do not abort; unrecognized keys are still loaded so callers can decide.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not read secret %s: %v\n", name, err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value == "" {
			continue
		}
		if !knownKeys[name] {
			fmt.Fprintf(os.Stderr, "warning: unrecognized secret %s (known: %s)\n",
				name, strings.Join(KnownKeys(), ", "))
		}
		secrets[name] = value
	}

	return secrets, nil
}
