package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/maric-labs/registrytools/internal/auth"
	"github.com/maric-labs/registrytools/internal/config"
)

// newAPIKeyCommand implements "api-key {create,list,delete}" against the
// bbolt-backed auth store, grounded on the original CLI's
// _handle_api_key_command subcommand group.
func newAPIKeyCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "api-key",
		Short: "Manage API keys for the auth store",
	}

	cmd.AddCommand(newAPIKeyCreateCommand(v))
	cmd.AddCommand(newAPIKeyListCommand(v))
	cmd.AddCommand(newAPIKeyDeleteCommand(v))
	return cmd
}

func openAuthStore(v *viper.Viper) (*auth.Store, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return auth.Open(cfg.AuthStorePath())
}

func newAPIKeyCreateCommand(v *viper.Viper) *cobra.Command {
	var name string
	var permission string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			perm, ok := parsePermission(permission)
			if !ok {
				return fmt.Errorf("unknown permission %q, must be read or write", permission)
			}

			store, err := openAuthStore(v)
			if err != nil {
				return err
			}
			defer store.Close()

			id, secret, err := store.Create(cmd.Context(), name, perm, ttl)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "id:         %s\nsecret:     %s\npermission: %s\n", id, secret, perm)
			fmt.Fprintln(cmd.OutOrStdout(), "store the secret now — it cannot be retrieved again")
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "human-readable label for the key")
	cmd.Flags().StringVar(&permission, "permission", "read", "read | write")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "key lifetime, 0 for no expiry")
	return cmd
}

func newAPIKeyListCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openAuthStore(v)
			if err != nil {
				return err
			}
			defer store.Close()

			keys, err := store.List(cmd.Context())
			if err != nil {
				return err
			}

			if len(keys) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no API keys")
				return nil
			}
			for _, k := range keys {
				expiry := "never"
				if k.ExpiresAt != nil {
					expiry = k.ExpiresAt.Format(time.RFC3339)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-20s %-6s created=%s expires=%s\n",
					k.ID, k.Name, k.Permission, k.Created.Format(time.RFC3339), expiry)
			}
			return nil
		},
	}
}

func newAPIKeyDeleteCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete an API key by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openAuthStore(v)
			if err != nil {
				return err
			}
			defer store.Close()

			existed, err := store.Delete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !existed {
				return fmt.Errorf("no API key with id %s", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}

func parsePermission(s string) (auth.Permission, bool) {
	switch auth.Permission(s) {
	case auth.PermissionRead, auth.PermissionWrite:
		return auth.Permission(s), true
	default:
		return "", false
	}
}
