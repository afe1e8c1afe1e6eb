package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/cellkv/cellkv/btree"
)

var insertCmd = &cobra.Command{
	Use:   "insert <key> <value>",
	Short: "Insert a new key/value pair; fails if the key already exists",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		bt, err := openStore()
		if err != nil {
			return err
		}
		defer bt.Close()

		if err := bt.Insert([]byte(args[0]), []byte(args[1])); err != nil {
			if errors.Is(err, btree.ErrAlreadyExists) {
				errC.Printf("error: key %q already exists\n", args[0])
				return err
			}
			return err
		}
		okC.Printf("inserted %q\n", args[0])
		return nil
	},
}
