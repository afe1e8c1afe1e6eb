package cmd

import (
	"errors"

	"github.com/cellkv/cellkv/common"
	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <key>",
	Short: "Remove a key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bt, err := openStore()
		if err != nil {
			return err
		}
		defer bt.Close()

		if err := bt.Delete([]byte(args[0])); err != nil {
			if errors.Is(err, common.ErrKeyNotFound) {
				errC.Printf("error: key %q not found\n", args[0])
				return err
			}
			return err
		}
		okC.Printf("deleted %q\n", args[0])
		return nil
	},
}
