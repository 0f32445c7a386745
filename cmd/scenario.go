package cmd

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/inference-sim/pausesim/sim/hierarchy"
	"github.com/inference-sim/pausesim/sim/trace"
)

// Scenario represents the full scenario YAML structure.
// All top-level sections must be listed to satisfy KnownFields(true) strict parsing.
type Scenario struct {
	Horizon    int64           `yaml:"horizon"`
	Tick       int64           `yaml:"tick"`
	Trace      string          `yaml:"trace"`
	Components []ComponentSpec `yaml:"components"`
	Requesters []RequesterSpec `yaml:"requesters"`
}

// ComponentSpec describes one node of the component tree.
type ComponentSpec struct {
	Name     string          `yaml:"name"`
	Session  bool            `yaml:"session"`
	Children []ComponentSpec `yaml:"children"`
}

// RequesterSpec describes a scripted suspend holder. Exactly one of At
// (tick, activated on the loop goroutine) or After (wall-clock delay,
// activated from its own goroutine) must be set. Confirm applies to After
// requesters only, since the loop goroutine never waits for itself.
type RequesterSpec struct {
	Name    string        `yaml:"name"`
	Owner   string        `yaml:"owner"`
	At      int64         `yaml:"at"`
	After   time.Duration `yaml:"after"`
	Hold    time.Duration `yaml:"hold"`
	Depth   int           `yaml:"depth"`
	Confirm bool          `yaml:"confirm"`
}

// LoadScenario parses a scenario file with strict field checking and validates it.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes scenario YAML; unknown fields are errors.
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&sc); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	sc.applyDefaults()
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

func (sc *Scenario) applyDefaults() {
	if sc.Tick == 0 {
		sc.Tick = 1
	}
	for i := range sc.Requesters {
		if sc.Requesters[i].Depth == 0 {
			sc.Requesters[i].Depth = 1
		}
	}
}

// Validate checks ranges, names and owner references.
func (sc *Scenario) Validate() error {
	if sc.Horizon < 1 {
		return fmt.Errorf("horizon must be >= 1, got %d", sc.Horizon)
	}
	if sc.Tick < 1 {
		return fmt.Errorf("tick must be >= 1, got %d", sc.Tick)
	}
	if !trace.IsValidTraceLevel(sc.Trace) {
		return fmt.Errorf("unknown trace level %q", sc.Trace)
	}
	paths := make(map[string]bool)
	if err := collectPaths(sc.Components, "", paths); err != nil {
		return err
	}
	for i, r := range sc.Requesters {
		if r.Name == "" {
			return fmt.Errorf("requester %d: name is required", i)
		}
		if (r.At > 0) == (r.After > 0) {
			return fmt.Errorf("requester %q: exactly one of at or after must be set", r.Name)
		}
		if r.At > 0 && r.Confirm {
			return fmt.Errorf("requester %q: confirm requires after, not at", r.Name)
		}
		if r.At < 0 || r.After < 0 || r.Hold < 0 {
			return fmt.Errorf("requester %q: at, after and hold must be non-negative", r.Name)
		}
		if r.Depth < 1 {
			return fmt.Errorf("requester %q: depth must be >= 1, got %d", r.Name, r.Depth)
		}
		if r.Owner != "" && !paths[r.Owner] {
			return fmt.Errorf("requester %q: unknown owner %q", r.Name, r.Owner)
		}
	}
	return nil
}

func collectPaths(specs []ComponentSpec, prefix string, paths map[string]bool) error {
	for _, c := range specs {
		if c.Name == "" {
			return fmt.Errorf("component under %q: name is required", prefix)
		}
		if strings.Contains(c.Name, hierarchy.Separator) {
			return fmt.Errorf("component %q: name must not contain %q", c.Name, hierarchy.Separator)
		}
		path := c.Name
		if prefix != "" {
			path = prefix + hierarchy.Separator + c.Name
		}
		if paths[path] {
			return fmt.Errorf("duplicate component %q", path)
		}
		paths[path] = true
		if err := collectPaths(c.Children, path, paths); err != nil {
			return err
		}
	}
	return nil
}

// TraceLevel returns the configured trace level, defaulting to none.
func (sc *Scenario) TraceLevel() trace.TraceLevel {
	if sc.Trace == "" {
		return trace.TraceLevelNone
	}
	return trace.TraceLevel(sc.Trace)
}
