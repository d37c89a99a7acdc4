// Package commands implements the didjwt command line.
package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/pilacorp/go-didjwt-sdk/config"
	"github.com/pilacorp/go-didjwt-sdk/manager"
)

type cli struct {
	configFile string
	logLevel   string
	extra      []manager.Option
	mgr        *manager.Manager
}

// Execute runs the didjwt command line.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd(extra ...manager.Option) *cobra.Command {
	c := &cli{extra: extra}

	root := &cobra.Command{
		Use:          "didjwt",
		Short:        "Issue and verify DID-signed JWTs and certificates across networks",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.init(cmd)
		},
	}

	root.PersistentFlags().StringVar(&c.configFile, "config", "", "YAML networks file (overrides "+config.EnvNetworksFile+")")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "info", "log level: debug, info, warn, error")

	root.AddCommand(c.identityCmd(), c.networksCmd(), c.jwtCmd(), c.certCmd())
	return root
}

func (c *cli) init(cmd *cobra.Command) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.logLevel)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.logLevel, err)
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}

	opts := append([]manager.Option{manager.WithLogger(logger)}, c.extra...)
	c.mgr, err = manager.New(cmd.Context(), cfg, opts...)
	return err
}

// loadConfig prefers --config over DIDJWT_NETWORKS_FILE. The other env
// overrides apply either way.
func (c *cli) loadConfig() (config.Config, error) {
	if c.configFile != "" {
		return config.FromFile(c.configFile)
	}
	return config.FromEnv()
}

// decodeJSON unmarshals b with numbers kept as json.Number.
func decodeJSON(b []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	return dec.Decode(v)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
