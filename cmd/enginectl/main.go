/*
Copyright The engine-go Authors.
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Command enginectl inspects how the engine client would connect and
// authenticate.
package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	engine "github.com/enginekit/engine-go"
)

type globalOptions struct {
	Host       string
	ConfigPath string
	Debug      bool
}

func main() {
	if err := newApp().Execute(); err != nil {
		logrus.Fatal(err)
	}
}

func newApp() *cobra.Command {
	var opts globalOptions
	rootCmd := &cobra.Command{
		Use:           "enginectl",
		Short:         "Inspect container engine connections and registry credentials",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.Debug {
				logrus.SetLevel(logrus.DebugLevel)
			}
			return nil
		},
	}
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.Host, "host", "H", "", "engine address (default $DOCKER_HOST or the local socket)")
	flags.StringVar(&opts.ConfigPath, "config", "", "TOML client configuration file")
	flags.BoolVar(&opts.Debug, "debug", false, "debug mode")

	rootCmd.AddCommand(
		newEndpointCommand(&opts),
		newPingCommand(&opts),
		newAuthCommand(&opts),
		newProxyCommand(&opts),
	)
	return rootCmd
}

// loadConfig layers the environment, the configuration file and the flags,
// in that order.
func (opts *globalOptions) loadConfig() (engine.Config, error) {
	cfg := engine.FromEnv()
	if opts.ConfigPath != "" {
		var err error
		if cfg, err = engine.LoadFile(opts.ConfigPath, cfg); err != nil {
			return engine.Config{}, err
		}
	}
	if opts.Host != "" {
		cfg.Host = opts.Host
	}
	return cfg, nil
}

func (opts *globalOptions) newClient(ctx context.Context) (*engine.Client, error) {
	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, err
	}
	return engine.New(ctx, cfg)
}

func newEndpointCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "endpoint",
		Short: "Print the resolved engine endpoint and connection pool",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.newClient(cmd.Context())
			if err != nil {
				return err
			}
			defer client.Close()
			m := client.Manager()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "endpoint: %s\n", client.Endpoint())
			fmt.Fprintf(out, "base url: %s\n", client.BaseURL())
			fmt.Fprintf(out, "pooled:   %t\n", m.Pooled())
			fmt.Fprintf(out, "size:     %d\n", m.Size())
			return nil
		},
	}
}

func newPingCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the engine answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.newClient(cmd.Context())
			if err != nil {
				return err
			}
			defer client.Close()
			if err := client.Ping(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "OK")
			return nil
		},
	}
}
