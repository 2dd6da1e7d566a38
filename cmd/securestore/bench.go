package main

import (
	"github.com/spf13/cobra"

	"github.com/extimsu/securestore/internal/speed"
	"github.com/extimsu/securestore/internal/store"
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Report AEAD throughput at the store's fixed block size",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		speed.Run(store.BlockSize)
	},
}

func init() {
	rootCmd.AddCommand(benchCmd)
}
