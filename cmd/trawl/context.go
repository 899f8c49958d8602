package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"trawl/internal/config"
)

// commandContext resolves configuration once per invocation and hands the
// result to whichever subcommand asks first.
type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

// explicitConfigPath returns the --config flag value, trimmed, or empty when
// the user left path resolution to the defaults.
func (c *commandContext) explicitConfigPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.explicitConfigPath())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// shouldSkipConfig reports whether the command or any ancestor opts out of
// config resolution, which commands that create the config file itself need.
func shouldSkipConfig(cmd *cobra.Command) bool {
	for current := cmd; current != nil; current = current.Parent() {
		if current.Annotations != nil && current.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
