package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/maric-labs/registrytools/internal/config"
)

func newRootCommand() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:   "registrytools",
		Short: "Tool registry and discovery service over MCP",
	}

	config.BindFlags(root, v)
	root.AddCommand(newServeCommand(v))
	root.AddCommand(newAPIKeyCommand(v))
	return root
}
