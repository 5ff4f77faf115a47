package main

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"gametrack/internal/api"
	"gametrack/internal/config"
)

// skipConfigAnnotation marks commands that load configuration themselves or
// need none.
const skipConfigAnnotation = "skipConfigLoad"

type commandContext struct {
	configFlag *string
	bindFlag   *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, bindFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		bindFlag:   bindFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err == nil {
			err = cfg.EnsureDirectories()
		}
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

func (c *commandContext) apiBind() string {
	if c.bindFlag != nil {
		if bind := strings.TrimSpace(*c.bindFlag); bind != "" {
			return bind
		}
	}
	if cfg, err := c.ensureConfig(); err == nil && cfg != nil {
		return cfg.Paths.APIBind
	}
	return ""
}

func (c *commandContext) client() (*api.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return api.NewClient(c.apiBind(), cfg.Paths.APIToken), nil
}

func (c *commandContext) withClient(fn func(*api.Client) error) error {
	client, err := c.client()
	if err != nil {
		return err
	}
	return wrapDaemonError(fn(client), c.apiBind())
}

func wrapDaemonError(err error, bind string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, api.ErrDaemonUnreachable) {
		return fmt.Errorf("connect to daemon at %s: not reachable; start it with `gametrack run` or gametrackd", bind)
	}
	var statusErr *api.StatusError
	if errors.As(err, &statusErr) && statusErr.Code == http.StatusUnauthorized {
		return errors.New("daemon rejected the request: set paths.api_token or GAMETRACK_API_TOKEN")
	}
	return err
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations[skipConfigAnnotation] == "true" {
			return true
		}
	}
	return false
}
