// Package config loads the evaluator's run configuration.
package config

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"blockinstruct.ai/internal/protocol"
)

type Config struct {
	Listen string `yaml:"listen"`

	List1Path string `yaml:"list1_path"`
	List2Path string `yaml:"list2_path"`

	// Seed for trial sequencing; 0 means seed from the clock at startup.
	Seed int64 `yaml:"seed"`

	// Role -> endpoint. Roles are matched case-insensitively and normalized
	// to lower case on load.
	Participants map[string]string `yaml:"participants"`

	// Optional question-answering endpoint; empty selects the built-in
	// fallback answerer.
	QAURL string `yaml:"qa_url"`

	TranscriptDir string `yaml:"transcript_dir"`
	DBPath        string `yaml:"db_path"`
}

func defaults() Config {
	return Config{
		Listen:        ":9019",
		TranscriptDir: "logs/transcripts",
		DBPath:        "data/results/index.db",
	}
}

func Load(path string) (Config, error) {
	cfg := defaults()
	if strings.TrimSpace(path) == "" {
		cfg.Normalize()
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, protocol.E(protocol.ErrConfig, "read config: %v", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, protocol.E(protocol.ErrConfig, "parse config %s: %v", path, err)
	}
	cfg.Normalize()
	return cfg, nil
}

func (c *Config) Normalize() {
	c.Listen = strings.TrimSpace(c.Listen)
	c.List1Path = strings.TrimSpace(c.List1Path)
	c.List2Path = strings.TrimSpace(c.List2Path)
	c.QAURL = strings.TrimSpace(c.QAURL)

	if len(c.Participants) > 0 {
		normalized := make(map[string]string, len(c.Participants))
		for role, ep := range c.Participants {
			normalized[strings.ToLower(strings.TrimSpace(role))] = strings.TrimSpace(ep)
		}
		c.Participants = normalized
	}
}

// Validate checks the fields a one-shot evaluation needs. When serving, the
// participants arrive with each EVAL request instead, so requireBuilder is
// false.
func (c *Config) Validate(requireBuilder bool) error {
	if c.List1Path == "" || c.List2Path == "" {
		return protocol.E(protocol.ErrConfig, "both list1_path and list2_path are required")
	}
	if requireBuilder {
		ep, ok := c.Participants[protocol.RoleBuilder]
		if !ok || ep == "" {
			return protocol.E(protocol.ErrConfig, "missing required participant role: %s", protocol.RoleBuilder)
		}
	}
	return nil
}
