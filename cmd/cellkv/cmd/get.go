package cmd

import (
	"errors"
	"fmt"

	"github.com/cellkv/cellkv/common"
	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Look up the value for a key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bt, err := openStore()
		if err != nil {
			return err
		}
		defer bt.Close()

		value, err := bt.Get([]byte(args[0]))
		if err != nil {
			if errors.Is(err, common.ErrKeyNotFound) {
				errC.Printf("error: key %q not found\n", args[0])
				return err
			}
			return err
		}
		fmt.Println(string(value))
		return nil
	},
}
