package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/otherjamesbrown/triage-cli/config"
	"github.com/otherjamesbrown/triage-cli/credentials"
	"github.com/otherjamesbrown/triage-cli/pkg/dedup"
)

// StoreCommandDeps holds the dependencies for the store commands.
type StoreCommandDeps struct {
	LoadConfig func() (*config.Config, error)
	OpenStore  func(ctx context.Context, cfg *config.Config) (dedup.Store, func(), error)
	SetKey     func(provider, key string) error
	DeleteKey  func(provider string) error
}

// DefaultStoreDeps returns the default dependencies for production use.
func DefaultStoreDeps() *StoreCommandDeps {
	return &StoreCommandDeps{
		LoadConfig: config.LoadConfig,
		OpenStore:  openStoreFromConfig,
		SetKey:     credentials.SetAPIKey,
		DeleteKey:  credentials.DeleteAPIKey,
	}
}

func openStoreFromConfig(ctx context.Context, cfg *config.Config) (dedup.Store, func(), error) {
	rt := &Runtime{Config: cfg, Logger: newLogger(cfg)}
	if err := buildStore(rt); err != nil {
		return nil, nil, err
	}
	return rt.Store, rt.Close, nil
}

// NewStoreCommand creates the 'store' command group for the dedup store and
// stored credentials.
func NewStoreCommand(deps *StoreCommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultStoreDeps()
	}

	cmd := &cobra.Command{
		Use:   "store",
		Short: "Inspect and manage local state",
		Long: `Inspect and manage the dedup store and stored API keys.

Commands:
  show       - Show how many item ids the dedup store tracks
  clear      - Forget all processed item ids (next run re-triages everything)
  set-key    - Store a provider API key in the ` + credentials.KeyringDescription() + `
  delete-key - Remove a stored provider API key`,
	}

	cmd.AddCommand(newStoreShowCommand(deps))
	cmd.AddCommand(newStoreClearCommand(deps))
	cmd.AddCommand(newStoreSetKeyCommand(deps))
	cmd.AddCommand(newStoreDeleteKeyCommand(deps))

	return cmd
}

func newStoreShowCommand(deps *StoreCommandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show dedup store contents",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := deps.LoadConfig()
			if err != nil {
				return err
			}
			store, closer, err := deps.OpenStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closer()

			ids, err := store.Load(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backend: %s\nTracked item ids: %d\n",
				cfg.Store.Backend, len(ids))
			return nil
		},
	}
}

func newStoreClearCommand(deps *StoreCommandDeps) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Forget all processed item ids",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				fmt.Fprint(cmd.OutOrStdout(), "This re-triages every item on the next run. Continue? [y/N] ")
				scanner := bufio.NewScanner(cmd.InOrStdin())
				if !scanner.Scan() || strings.ToLower(strings.TrimSpace(scanner.Text())) != "y" {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
					return nil
				}
			}

			cfg, err := deps.LoadConfig()
			if err != nil {
				return err
			}
			store, closer, err := deps.OpenStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closer()

			if err := store.Save(cmd.Context(), map[string]struct{}{}); err != nil {
				return fmt.Errorf("clearing store: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Dedup store cleared.")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func newStoreSetKeyCommand(deps *StoreCommandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "set-key <provider>",
		Short: "Store a provider API key in the system keyring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider := args[0]

			var key string
			if term.IsTerminal(int(os.Stdin.Fd())) {
				fmt.Fprintf(cmd.OutOrStdout(), "API key for %s: ", provider)
				raw, err := term.ReadPassword(int(os.Stdin.Fd()))
				fmt.Fprintln(cmd.OutOrStdout())
				if err != nil {
					return fmt.Errorf("reading key: %w", err)
				}
				key = string(raw)
			} else {
				scanner := bufio.NewScanner(cmd.InOrStdin())
				if scanner.Scan() {
					key = scanner.Text()
				}
			}

			if err := deps.SetKey(provider, strings.TrimSpace(key)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored %s key (%s) in the %s.\n",
				provider, credentials.MaskKey(strings.TrimSpace(key)), credentials.KeyringDescription())
			return nil
		},
	}
}

func newStoreDeleteKeyCommand(deps *StoreCommandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-key <provider>",
		Short: "Remove a stored provider API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := deps.DeleteKey(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed stored key for %s.\n", args[0])
			return nil
		},
	}
}
