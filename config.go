package gitsubset

import "github.com/goccy/go-yaml"

// Config is an optional YAML description of a subset run. Explicit command
// line flags take precedence over it.
type Config struct {
	// Branch to create on the rewritten commits.
	Branch string `yaml:"branch,omitempty"`
	// Revision range to filter, defaults to HEAD.
	Revision string `yaml:"revision,omitempty"`
	// Include paths, inserted before Exclude.
	Include []string `yaml:"include,omitempty"`
	// Exclude paths narrowing the included subtrees.
	Exclude []string `yaml:"exclude,omitempty"`
}

// ParseConfigYAML parses a [Config] from YAML.
func ParseConfigYAML(file []byte) (*Config, error) {
	result := &Config{}

	if err := yaml.Unmarshal(file, result); err != nil {
		return nil, err
	}

	return result, nil
}

// Filter builds the filter described by the config.
func (c *Config) Filter() *Filter {
	f := NewFilter()
	for _, p := range c.Include {
		f.InsertInclude(p)
	}
	for _, p := range c.Exclude {
		f.InsertExclude(p)
	}

	return f
}
