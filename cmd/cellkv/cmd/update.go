package cmd

import (
	"errors"

	"github.com/cellkv/cellkv/common"
	"github.com/spf13/cobra"
)

var updateCmd = &cobra.Command{
	Use:   "update <key> <value>",
	Short: "Overwrite the value for an existing key; fails if the key is absent",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		bt, err := openStore()
		if err != nil {
			return err
		}
		defer bt.Close()

		if err := bt.Update([]byte(args[0]), []byte(args[1])); err != nil {
			if errors.Is(err, common.ErrKeyNotFound) {
				errC.Printf("error: key %q not found\n", args[0])
				return err
			}
			return err
		}
		okC.Printf("updated %q\n", args[0])
		return nil
	},
}
