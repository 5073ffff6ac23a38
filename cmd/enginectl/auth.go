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
	"io"

	"github.com/spf13/cobra"

	"github.com/enginekit/engine-go/auth"
)

func newAuthCommand(opts *globalOptions) *cobra.Command {
	authCommand := &cobra.Command{
		Use:   "auth",
		Short: "Show the registry credentials the client would send",
	}
	authCommand.AddCommand(
		newAuthImageCommand(opts),
		newAuthSwarmCommand(opts),
		newAuthBuildCommand(opts),
	)
	return authCommand
}

func newAuthImageCommand(opts *globalOptions) *cobra.Command {
	var header bool
	cmd := &cobra.Command{
		Use:   "image [flags] IMAGE",
		Short: "Show the credential sent when pulling or pushing IMAGE",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.newClient(cmd.Context())
			if err != nil {
				return err
			}
			defer client.Close()
			cred, err := client.Auth().AuthForImage(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printCredential(cmd.OutOrStdout(), cred, header)
		},
	}
	cmd.Flags().BoolVar(&header, "header", false, "print the encoded X-Registry-Auth value")
	return cmd
}

func newAuthSwarmCommand(opts *globalOptions) *cobra.Command {
	var header bool
	cmd := &cobra.Command{
		Use:   "swarm",
		Short: "Show the credential sent for swarm operations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.newClient(cmd.Context())
			if err != nil {
				return err
			}
			defer client.Close()
			cred, err := client.Auth().AuthForSwarm(cmd.Context())
			if err != nil {
				return err
			}
			return printCredential(cmd.OutOrStdout(), cred, header)
		},
	}
	cmd.Flags().BoolVar(&header, "header", false, "print the encoded X-Registry-Auth value")
	return cmd
}

func newAuthBuildCommand(opts *globalOptions) *cobra.Command {
	var header bool
	cmd := &cobra.Command{
		Use:   "build",
		Short: "List the registries credentials are sent for when building",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.newClient(cmd.Context())
			if err != nil {
				return err
			}
			defer client.Close()
			creds, err := client.Auth().AuthForBuild(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if header {
				value, err := auth.EncodeConfigHeader(creds)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, value)
				return nil
			}
			for _, key := range creds.Keys() {
				fmt.Fprintf(out, "%s\t%s\n", key, creds[key].Username)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&header, "header", false, "print the encoded X-Registry-Config value")
	return cmd
}

// printCredential writes cred without its secrets, or as a header value.
func printCredential(out io.Writer, cred *auth.Credential, header bool) error {
	if header {
		value, err := auth.EncodeAuthHeader(cred)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, value)
		return nil
	}
	if cred == nil {
		fmt.Fprintln(out, "no credential")
		return nil
	}
	fmt.Fprintf(out, "server:   %s\n", cred.ServerAddress)
	fmt.Fprintf(out, "username: %s\n", cred.Username)
	switch {
	case cred.IdentityToken != "":
		fmt.Fprintln(out, "secret:   identity token")
	case cred.Password != "":
		fmt.Fprintln(out, "secret:   password")
	default:
		fmt.Fprintln(out, "secret:   none")
	}
	return nil
}
