package services

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// MetaToolServerName is the key of the Meta Ads tool server in the config document.
const MetaToolServerName = "meta-ads"

// ToolServerConfig describes one tool server the agent can call into.
type ToolServerConfig struct {
	BaseURL string            `yaml:"base_url"`
	Env     map[string]string `yaml:"env"`
}

// ToolConfig is the parsed tool configuration document.
type ToolConfig struct {
	Servers map[string]ToolServerConfig `yaml:"servers"`
}

// WithAccessToken returns a deep copy of the config with the user's Meta
// access token injected into the meta-ads server environment. The base
// document is shared across users and must never be mutated.
func (c *ToolConfig) WithAccessToken(accessToken string) *ToolConfig {
	out := &ToolConfig{Servers: make(map[string]ToolServerConfig, len(c.Servers))}
	for name, server := range c.Servers {
		env := make(map[string]string, len(server.Env)+1)
		for k, v := range server.Env {
			env[k] = v
		}
		if name == MetaToolServerName {
			env["META_ACCESS_TOKEN"] = accessToken
		}
		out.Servers[name] = ToolServerConfig{
			BaseURL: server.BaseURL,
			Env:     env,
		}
	}
	return out
}

// ToolConfigLoader reads the base tool configuration once and caches it.
type ToolConfigLoader struct {
	path string
	once sync.Once
	cfg  *ToolConfig
	err  error
}

// NewToolConfigLoader creates a loader for the given config path.
func NewToolConfigLoader(path string) *ToolConfigLoader {
	return &ToolConfigLoader{path: path}
}

// Load parses the config document. Subsequent calls return the cached result.
func (l *ToolConfigLoader) Load() (*ToolConfig, error) {
	l.once.Do(func() {
		data, err := os.ReadFile(l.path)
		if err != nil {
			l.err = fmt.Errorf("failed to read tool config %s: %w", l.path, err)
			return
		}

		var cfg ToolConfig
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			l.err = fmt.Errorf("failed to parse tool config %s: %w", l.path, err)
			return
		}

		if _, ok := cfg.Servers[MetaToolServerName]; !ok {
			l.err = fmt.Errorf("tool config %s has no %q server", l.path, MetaToolServerName)
			return
		}

		l.cfg = &cfg
	})

	return l.cfg, l.err
}
