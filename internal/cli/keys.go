package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/vpnhouse/console/internal/domain"
	"github.com/vpnhouse/console/internal/validate"
)

func newKeysCmd(flags *rootFlags) *cobra.Command {
	keysCmd := &cobra.Command{Use: "keys", Short: "Manage trusted federation keys"}
	keysCmd.AddCommand(newKeysListCmd(flags))
	keysCmd.AddCommand(newKeysAddCmd(flags))
	keysCmd.AddCommand(newKeysDeleteCmd(flags))
	return keysCmd
}

func newKeysListCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List trusted keys",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadSignedIn(flags)
			if err != nil {
				return err
			}
			if err := a.Trusted.Load(cmd.Context()); err != nil {
				return lastError(a, "list failed")
			}
			for _, e := range a.Trusted.Snapshot().Keys {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), e.Key.ID)
			}
			return nil
		},
	}
}

func newKeysAddCmd(flags *rootFlags) *cobra.Command {
	var id, keyFile string
	cmd := &cobra.Command{
		Use:   "add <key|->",
		Short: "Add a trusted key (use - to read the key from stdin)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadSignedIn(flags)
			if err != nil {
				return err
			}
			text, err := keyText(args, keyFile, cmd.InOrStdin())
			if err != nil {
				return err
			}
			if id == "" {
				id = uuid.NewString()
			}
			if msg := validate.Submit(validate.FieldKeyID, id); msg != "" {
				return fmt.Errorf("id: %s", msg)
			}
			if msg := validate.Submit(validate.FieldKeyText, text); msg != "" {
				return fmt.Errorf("key: %s", msg)
			}
			key := domain.TrustedKey{ID: id, Key: text}
			if err := a.Trusted.Save(cmd.Context(), key, key.ID); err != nil {
				return lastError(a, "save failed")
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), key.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "key id (generated if omitted)")
	cmd.Flags().StringVar(&keyFile, "file", "", "read the key from a file")
	return cmd
}

func keyText(args []string, keyFile string, stdin interface{ Read([]byte) (int, error) }) (string, error) {
	if keyFile != "" {
		raw, err := os.ReadFile(keyFile)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(raw)), nil
	}
	if len(args) == 0 {
		return "", fmt.Errorf("a key argument or --file is required")
	}
	if args[0] != "-" {
		return args[0], nil
	}
	var sb strings.Builder
	buf := make([]byte, 4096)
	for {
		n, err := stdin.Read(buf)
		sb.Write(buf[:n])
		if err != nil {
			break
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

func newKeysDeleteCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a trusted key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadSignedIn(flags)
			if err != nil {
				return err
			}
			if err := a.Trusted.Load(cmd.Context()); err != nil {
				return lastError(a, "list failed")
			}
			if err := a.Trusted.Delete(cmd.Context(), args[0], false); err != nil {
				return lastError(a, "delete failed")
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "trusted key deleted")
			return nil
		},
	}
}
