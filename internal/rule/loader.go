package rule

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/halgrim/noema/internal/term"
)

// ruleFile is the on-disk rule definition format. Pattern and action use
// the same textual term syntax the API accepts.
type ruleFile struct {
	ID          string `json:"id,omitempty"`
	Pattern     string `json:"pattern"`
	Action      string `json:"action"`
	Description string `json:"description,omitempty"`
	Priority    int    `json:"priority,omitempty"`
	Disabled    bool   `json:"disabled,omitempty"`
}

// LoadFromDir scans a directory for *.json rule definition files. A
// missing directory returns an empty slice without error, so a fresh
// deployment can start with no rules on disk.
func LoadFromDir(dir string) ([]*Rule, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading rule directory %s: %w", dir, err)
	}

	var rules []*Rule
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		loaded, err := loadRuleFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("loading rule %s: %w", entry.Name(), err)
		}
		rules = append(rules, loaded...)
	}
	return rules, nil
}

// loadRuleFile parses one file holding either a single definition or an
// array of them.
func loadRuleFile(path string) ([]*Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var defs []ruleFile
	if err := json.Unmarshal(data, &defs); err != nil {
		var single ruleFile
		if err := json.Unmarshal(data, &single); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		defs = []ruleFile{single}
	}

	rules := make([]*Rule, 0, len(defs))
	for _, def := range defs {
		if def.Pattern == "" || def.Action == "" {
			return nil, fmt.Errorf("%s: pattern and action are required", path)
		}
		action := term.ParseHeuristic(def.Action)
		if _, ok := action.(term.Structure); !ok {
			return nil, fmt.Errorf("%s: action %q is not a structure", path, def.Action)
		}
		r := New(term.ParseHeuristic(def.Pattern), action)
		if def.ID != "" {
			r.ID = def.ID
		}
		r.Description = def.Description
		r.Priority = def.Priority
		r.Enabled = !def.Disabled
		rules = append(rules, r)
	}
	return rules, nil
}
