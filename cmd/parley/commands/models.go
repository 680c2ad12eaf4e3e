package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/parleyhq/parley/internal/provider"
)

var (
	modelsUser  string
	modelsKinds bool
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List configured models",
	Long: `List the model configurations stored for a user.

Examples:
  parley models                # List models for the default user
  parley models --user alice   # List models for a specific user
  parley models --kinds        # List supported provider kinds`,
	RunE: runModels,
}

func init() {
	modelsCmd.Flags().StringVar(&modelsUser, "user", "default", "User whose models to list")
	modelsCmd.Flags().BoolVar(&modelsKinds, "kinds", false, "List supported provider kinds instead")
}

func runModels(cmd *cobra.Command, args []string) error {
	if modelsKinds {
		for _, kind := range provider.Kinds() {
			fmt.Println(kind)
		}
		return nil
	}

	_, svc, _, err := openServices()
	if err != nil {
		return err
	}

	configs, err := svc.ListModelConfigs(context.Background(), modelsUser)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPROVIDER\tMODEL\tCREDENTIAL\t")
	for _, cfg := range configs {
		credential := "-"
		if cfg.CredentialID != nil {
			credential = *cfg.CredentialID
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t\n",
			cfg.ID, cfg.Name, cfg.Provider, cfg.Model, credential)
	}
	return w.Flush()
}
