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

package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/enginekit/engine-go/proxy"
)

func newProxyCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "proxy HOST",
		Short: "Print the proxy used to reach HOST, or DIRECT",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			logrus.WithField("host", cfg.Proxy.Host).
				WithField("noProxy", cfg.Proxy.NoProxy).
				Debug("proxy settings")
			p := proxy.Resolve(cfg.Proxy, args[0])
			if p == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "DIRECT")
				return nil
			}
			u := p.URL()
			u.User = nil
			fmt.Fprintln(cmd.OutOrStdout(), u.String())
			return nil
		},
	}
}
