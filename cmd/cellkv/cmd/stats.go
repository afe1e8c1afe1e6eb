package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print page and key counters for the database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		bt, err := openStore()
		if err != nil {
			return err
		}
		defer bt.Close()

		s := bt.Stats()
		fmt.Printf("keys:      %d\n", s.NumKeys)
		fmt.Printf("pages:     %d\n", s.NumSegments)
		fmt.Printf("disk size: %d bytes\n", s.TotalDiskSize)
		fmt.Printf("writes:    %d\n", s.WriteCount)
		fmt.Printf("reads:     %d\n", s.ReadCount)
		return nil
	},
}
