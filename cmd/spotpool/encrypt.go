package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"spotpool/pkg/credentials"
)

// encryptCmd converts a plaintext clients file into an encrypted one
var encryptCmd = &cobra.Command{
	Use:   "encrypt <clients.json> <output>",
	Short: "Encrypt a plaintext clients file",
	Long: `Read a plaintext clients file and write an AES-GCM encrypted copy.
You will be prompted for a passphrase; set SPOTPOOL_CLIENTS_PASSPHRASE to
the same value when running against the encrypted file.

Remember to delete the plaintext file afterwards.`,
	Args: cobra.ExactArgs(2),
	RunE: runEncrypt,
}

func init() {
	rootCmd.AddCommand(encryptCmd)
}

func runEncrypt(cmd *cobra.Command, args []string) error {
	if _, err := loadConfig(); err != nil {
		return err
	}

	creds, err := credentials.Load(args[0])
	if err != nil {
		return err
	}
	if len(creds) == 0 {
		return fmt.Errorf("no clients found in %s", args[0])
	}

	passphrase, err := promptPassphrase("Passphrase: ")
	if err != nil {
		return err
	}
	confirm, err := promptPassphrase("Confirm passphrase: ")
	if err != nil {
		return err
	}
	if passphrase != confirm {
		return fmt.Errorf("passphrases do not match")
	}
	if passphrase == "" {
		return fmt.Errorf("passphrase must not be empty")
	}

	if err := credentials.SaveEncrypted(args[1], passphrase, creds); err != nil {
		return err
	}
	fmt.Printf("encrypted %d clients to %s\n", len(creds), args[1])
	return nil
}
