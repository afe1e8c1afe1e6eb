package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List every key/value pair in the leftmost leaf, in ascending key order",
	Long: `scan walks the leftmost leaf reached from the root, in ascending key
order. It does not cross leaf boundaries: a database that has split has
keys in leaves this command will not visit. This mirrors the underlying
store's single-leaf iteration.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		bt, err := openStore()
		if err != nil {
			return err
		}
		defer bt.Close()

		n := 0
		err = bt.SelectAll(func(key, value []byte) bool {
			fmt.Printf("%s\t%s\n", key, value)
			n++
			return true
		})
		if err != nil {
			return err
		}
		if n == 0 {
			warnC.Println("(no keys)")
		}
		return nil
	},
}
