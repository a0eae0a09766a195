package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// MineralEntry pairs a mineral with the subreddits searched for it
type MineralEntry struct {
	Mineral    string
	Subreddits []string
}

// Mapping is the ordered mineral -> subreddits table driving a run.
// Order follows the mapping file so runs process minerals predictably.
type Mapping struct {
	entries []MineralEntry
	index   map[string]int
}

// LoadMapping reads a JSON object of the form {"mineral": ["subreddit", ...]}
func LoadMapping(path string) (*Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping file: %w", err)
	}

	m, err := ParseMapping(data)
	if err != nil {
		return nil, fmt.Errorf("invalid mapping file %s: %w", path, err)
	}
	return m, nil
}

// ParseMapping decodes mapping JSON, keeping the key order of the document
func ParseMapping(data []byte) (*Mapping, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to parse mapping: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("mapping must be a JSON object of mineral to subreddit list")
	}

	m := &Mapping{index: make(map[string]int)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to parse mapping: %w", err)
		}
		key, _ := tok.(string)

		var subs []string
		if err := dec.Decode(&subs); err != nil {
			return nil, fmt.Errorf("mineral %q: subreddits must be a list of strings: %w", key, err)
		}

		if err := m.add(key, subs); err != nil {
			return nil, err
		}
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("failed to parse mapping: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after mapping object")
	}

	if len(m.entries) == 0 {
		return nil, errors.New("mapping contains no minerals")
	}
	return m, nil
}

func (m *Mapping) add(mineral string, subreddits []string) error {
	mineral = strings.TrimSpace(mineral)
	if err := ValidateMineralName(mineral); err != nil {
		return err
	}
	if _, exists := m.index[mineral]; exists {
		return fmt.Errorf("mineral %q listed twice", mineral)
	}

	seen := make(map[string]bool, len(subreddits))
	cleaned := make([]string, 0, len(subreddits))
	for _, sub := range subreddits {
		sub = NormalizeSubreddit(sub)
		if sub == "" {
			continue
		}
		key := strings.ToLower(sub)
		if seen[key] {
			continue
		}
		seen[key] = true
		cleaned = append(cleaned, sub)
	}

	m.index[mineral] = len(m.entries)
	m.entries = append(m.entries, MineralEntry{Mineral: mineral, Subreddits: cleaned})
	return nil
}

// ValidateMineralName rejects names that cannot be used as a directory name
func ValidateMineralName(name string) error {
	if name == "" {
		return errors.New("mineral name cannot be empty")
	}
	if name == "." || name == ".." {
		return fmt.Errorf("invalid mineral name %q", name)
	}
	if strings.ContainsAny(name, "/\\\x00") {
		return fmt.Errorf("mineral name %q contains a path separator", name)
	}
	return nil
}

// NormalizeSubreddit trims whitespace and a leading "r/" or "/r/"
func NormalizeSubreddit(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimPrefix(name, "/")
	if len(name) > 2 && strings.EqualFold(name[:2], "r/") {
		name = name[2:]
	}
	return strings.Trim(name, "/ ")
}

// Entries returns the mapping in file order
func (m *Mapping) Entries() []MineralEntry {
	out := make([]MineralEntry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Minerals returns the mineral names in file order
func (m *Mapping) Minerals() []string {
	names := make([]string, len(m.entries))
	for i, e := range m.entries {
		names[i] = e.Mineral
	}
	return names
}

// Subreddits returns the subreddits for a mineral
func (m *Mapping) Subreddits(mineral string) ([]string, bool) {
	i, ok := m.index[mineral]
	if !ok {
		return nil, false
	}
	return m.entries[i].Subreddits, true
}

// Len returns the number of minerals
func (m *Mapping) Len() int {
	return len(m.entries)
}

// Filter returns a mapping restricted to the named minerals, keeping file order.
// An empty name list returns the mapping unchanged.
func (m *Mapping) Filter(names []string) (*Mapping, error) {
	if len(names) == 0 {
		return m, nil
	}

	want := make(map[string]bool, len(names))
	var unknown []string
	for _, n := range names {
		n = strings.TrimSpace(n)
		if _, ok := m.index[n]; !ok {
			unknown = append(unknown, n)
			continue
		}
		want[n] = true
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("minerals not in mapping: %s", strings.Join(unknown, ", "))
	}

	filtered := &Mapping{index: make(map[string]int)}
	for _, e := range m.entries {
		if want[e.Mineral] {
			filtered.index[e.Mineral] = len(filtered.entries)
			filtered.entries = append(filtered.entries, e)
		}
	}
	return filtered, nil
}
