package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/landverify/client-sdk-go/wallet"
)

func newKeysCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage encrypted keystore accounts",
	}

	newKey := &cobra.Command{
		Use:   "new",
		Short: "Create an account and save it to the keystore",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.saveKey(wallet.NewAccountSigner())
		},
	}

	importKey := &cobra.Command{
		Use:   "import",
		Short: "Import the SIGNER_MNEMONIC account into the keystore",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.mnemonicSigner()
			if err != nil {
				return err
			}
			return a.saveKey(s)
		},
	}

	cmd.AddCommand(newKey, importKey)
	return cmd
}

func (a *app) saveKey(s *wallet.AccountSigner) error {
	km, err := wallet.NewKeystoreManager(a.v.GetString("KEYSTORE_DIR"))
	if err != nil {
		return err
	}
	password, err := a.keystorePassword("New keystore password")
	if err != nil {
		return err
	}
	path, err := km.Save(s, password)
	if err != nil {
		return err
	}

	if a.jsonMode {
		return printJSON(map[string]string{"address": s.Address(), "path": path})
	}
	success("saved %s", s.Address())
	field("Keystore", path)
	fmt.Println("Sign with: landverify --signer keystore --address " + s.Address())
	return nil
}
