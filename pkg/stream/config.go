package stream

import (
	"fmt"
	"os"

	"sigs.k8s.io/yaml"
)

// EnvironmentMode selects how much self-checking the network does.
type EnvironmentMode string

const (
	// Reproducible is the default mode: no extra checks.
	Reproducible EnvironmentMode = "REPRODUCIBLE"
	// FullAssert evaluates mapping and key functions twice to detect impure functions and
	// verifies the score against a from-scratch recalculation after every flush. Slow.
	FullAssert EnvironmentMode = "FULL_ASSERT"
)

// Config is the declarative configuration of a session factory.
type Config struct {
	// EnvironmentMode defaults to REPRODUCIBLE.
	EnvironmentMode EnvironmentMode `json:"environmentMode,omitempty"`
	// ConstraintMatchEnabled turns on justification tracking in the scoring nodes.
	ConstraintMatchEnabled bool `json:"constraintMatchEnabled,omitempty"`
	// ConstraintWeights overrides constraint weights by constraint name. Values use the text
	// form of the score type, e.g. "-1hard/0soft".
	ConstraintWeights map[string]string `json:"constraintWeights,omitempty"`
}

// ParseConfig parses a YAML or JSON config.
func ParseConfig(data []byte) (Config, error) {
	var c Config
	if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// LoadConfig reads a config file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return ParseConfig(data)
}

// Validate checks the config values.
func (c Config) Validate() error {
	switch c.EnvironmentMode {
	case "", Reproducible, FullAssert:
		return nil
	default:
		return newConfigError("", "unknown environment mode %q", c.EnvironmentMode)
	}
}

func (c Config) fullAssert() bool { return c.EnvironmentMode == FullAssert }

// environment is the build-time state shared by the nodes of one network.
type environment struct {
	fullAssert bool
}

// assertPure evaluates f a second time in FullAssert mode and panics if the results differ.
func (e *environment) assertPure(node string, f KeyFunc, facts []any, first any) {
	if e == nil || !e.fullAssert {
		return
	}
	if second := f(facts); !factEqual(first, second) {
		panic(&InternalError{Node: node, Cause: ErrConfiguration,
			msg: fmt.Sprintf("function is not pure: evaluated to %v and then %v on %v", first, second, facts)})
	}
}
