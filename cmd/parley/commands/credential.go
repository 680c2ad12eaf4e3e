package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/parleyhq/parley/internal/chat"
	"github.com/parleyhq/parley/internal/config"
	"github.com/parleyhq/parley/internal/storage"
	"github.com/parleyhq/parley/internal/vault"
	"github.com/parleyhq/parley/pkg/types"
)

var credentialName string

var credentialCmd = &cobra.Command{
	Use:   "credential",
	Short: "Manage sealed provider API keys",
	Long: `Manage the encrypted credential vault.

Keys are sealed with the configured master secret before they touch
disk; no command ever prints a stored key back.

Subcommands:
  put      Seal and store an API key
  check    Verify a stored credential decrypts
  delete   Remove a credential`,
}

var credentialPutCmd = &cobra.Command{
	Use:   "put <id>",
	Short: "Seal and store an API key",
	Args:  cobra.ExactArgs(1),
	RunE:  runCredentialPut,
}

var credentialCheckCmd = &cobra.Command{
	Use:   "check <id>",
	Short: "Verify a stored credential decrypts with the master secret",
	Args:  cobra.ExactArgs(1),
	RunE:  runCredentialCheck,
}

var credentialDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Remove a credential",
	Args:  cobra.ExactArgs(1),
	RunE:  runCredentialDelete,
}

func init() {
	credentialPutCmd.Flags().StringVar(&credentialName, "name", "", "Display name for the credential")

	credentialCmd.AddCommand(credentialPutCmd)
	credentialCmd.AddCommand(credentialCheckCmd)
	credentialCmd.AddCommand(credentialDeleteCmd)
}

// openServices loads configuration and wires the local storage stack.
func openServices() (*types.Config, *chat.Service, *vault.Vault, error) {
	paths := config.GetPaths()
	if err := paths.EnsurePaths(); err != nil {
		return nil, nil, nil, err
	}

	appConfig, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}

	svc := chat.NewService(storage.New(appConfig.DataDir))
	return appConfig, svc, vault.New(appConfig.MasterSecret), nil
}

func runCredentialPut(cmd *cobra.Command, args []string) error {
	_, svc, v, err := openServices()
	if err != nil {
		return err
	}

	fmt.Fprint(os.Stderr, "Enter API key: ")
	reader := bufio.NewReader(os.Stdin)
	apiKey, err := reader.ReadString('\n')
	if err != nil {
		return err
	}
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return fmt.Errorf("API key cannot be empty")
	}

	blob, err := v.Encrypt(apiKey)
	if err != nil {
		return fmt.Errorf("seal key: %w", err)
	}

	cred := &types.Credential{
		ID:   args[0],
		Name: credentialName,
		Blob: blob,
	}
	if err := svc.PutCredential(context.Background(), cred); err != nil {
		return err
	}

	fmt.Printf("Credential %s stored\n", cred.ID)
	return nil
}

func runCredentialCheck(cmd *cobra.Command, args []string) error {
	_, svc, v, err := openServices()
	if err != nil {
		return err
	}

	blob, err := svc.LookupCredential(context.Background(), args[0])
	if err != nil {
		return err
	}

	if _, err := v.Decrypt(blob); err != nil {
		return fmt.Errorf("credential %s does not decrypt: %w", args[0], err)
	}

	fmt.Printf("Credential %s OK\n", args[0])
	return nil
}

func runCredentialDelete(cmd *cobra.Command, args []string) error {
	_, svc, _, err := openServices()
	if err != nil {
		return err
	}

	if err := svc.DeleteCredential(context.Background(), args[0]); err != nil {
		return err
	}

	fmt.Printf("Credential %s removed\n", args[0])
	return nil
}
