package statemachine

import (
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// Config declares a machine vocabulary in YAML:
//
//	name: door
//	initialState: closed
//	states:
//	  - name: closed
//	  - name: opened
//	transitions:
//	  - name: opening
//	    from: closed
//	    to: opened
//
// Ids are optional. States without one are numbered from 0 and transitions
// from 1, in declaration order, skipping ids already taken.
type Config struct {
	Name         string             `json:"name"         yaml:"name"`
	InitialState string             `json:"initialState" yaml:"initialState"`
	States       []StateConfig      `json:"states"       yaml:"states"`
	Transitions  []TransitionConfig `json:"transitions"  yaml:"transitions"`
}

// StateConfig defines the configuration for a state.
type StateConfig struct {
	Name string `json:"name"         yaml:"name"`
	ID   *int   `json:"id,omitempty" yaml:"id,omitempty"`
}

// TransitionConfig defines the configuration for a transition.
type TransitionConfig struct {
	Name string `json:"name"         yaml:"name"`
	ID   *int   `json:"id,omitempty" yaml:"id,omitempty"`
	From string `json:"from"         yaml:"from"`
	To   string `json:"to"           yaml:"to"`
}

// LoadConfig loads a machine configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Intentional path-based loading
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}

	return LoadConfigFromBytes(data)
}

// LoadConfigFromBytes loads a machine configuration from YAML bytes.
func LoadConfigFromBytes(data []byte) (*Config, error) {
	var config Config

	err := yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	err = config.Validate()
	if err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadConfigFromFS loads a configuration from an embedded filesystem.
func LoadConfigFromFS(fsys fs.FS, path string) (*Config, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config from FS: %w", err)
	}

	return LoadConfigFromBytes(data)
}

// Validate checks the parts of the configuration that Build cannot check
// itself: names and references between states and transitions.
func (c *Config) Validate() error {
	if c.Name == "" {
		return ErrTableNameRequired
	}

	if c.InitialState == "" {
		return ErrInitialStateRequired
	}

	if len(c.States) == 0 {
		return ErrStateRequired
	}

	if !c.stateExists(c.InitialState) {
		return fmt.Errorf("initial state: %w: %s", ErrUnknownState, c.InitialState)
	}

	for i, state := range c.States {
		if state.Name == "" {
			return fmt.Errorf("state %d: %w", i, ErrStateNameRequired)
		}
	}

	for i, transition := range c.Transitions {
		if transition.Name == "" {
			return fmt.Errorf("transition %d: %w", i, ErrTransitionNameRequired)
		}

		if !c.stateExists(transition.From) {
			return fmt.Errorf("transition %s: from %w: %q", transition.Name, ErrUnknownState, transition.From)
		}

		if !c.stateExists(transition.To) {
			return fmt.Errorf("transition %s: to %w: %q", transition.Name, ErrUnknownState, transition.To)
		}
	}

	return nil
}

// Build turns the configuration into a Table and returns it with the
// configured initial state.
func (c *Config) Build() (*Table, State, error) {
	err := c.Validate()
	if err != nil {
		return nil, StateNotAvailable, err
	}

	stateIDs := assignIDs(len(c.States), 0, func(i int) *int { return c.States[i].ID })
	transitionIDs := assignIDs(len(c.Transitions), int(TransitionNone)+1,
		func(i int) *int { return c.Transitions[i].ID })

	byName := make(map[string]State, len(c.States))
	states := make([]StateSpec, len(c.States))

	for i, state := range c.States {
		states[i] = StateSpec{State: State(stateIDs[i]), Name: state.Name}
		byName[state.Name] = State(stateIDs[i])
	}

	transitions := make([]TransitionSpec, len(c.Transitions))

	for i, transition := range c.Transitions {
		transitions[i] = TransitionSpec{
			Transition: Transition(transitionIDs[i]),
			Name:       transition.Name,
			From:       byName[transition.From],
			To:         byName[transition.To],
		}
	}

	table, err := NewTable(c.Name, states, transitions)
	if err != nil {
		return nil, StateNotAvailable, err
	}

	return table, byName[c.InitialState], nil
}

// stateExists checks if a state with the given name exists.
func (c *Config) stateExists(name string) bool {
	for _, state := range c.States {
		if state.Name == name {
			return true
		}
	}

	return false
}

// assignIDs keeps explicit ids and fills the gaps with the lowest free ids
// starting at first.
func assignIDs(count int, first int, explicit func(i int) *int) []int {
	ids := make([]int, count)
	taken := make(map[int]bool, count)

	for i := range count {
		if id := explicit(i); id != nil {
			taken[*id] = true
		}
	}

	next := first

	for i := range count {
		if id := explicit(i); id != nil {
			ids[i] = *id

			continue
		}

		for taken[next] {
			next++
		}

		ids[i] = next
		taken[next] = true
	}

	return ids
}
