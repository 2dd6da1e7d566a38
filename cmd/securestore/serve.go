package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/extimsu/securestore/internal/ctlsocksrv"
)

var sockPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Open the store and serve its status control socket until interrupted",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		s := openStore()
		defer s.Close()

		listener, err := ctlsocksrv.Listen(sockPath)
		checkErr(err)
		defer os.Remove(sockPath)

		go ctlsocksrv.Serve(listener, s)

		fmt.Printf("serving status on %s, ctrl-C to stop\n", sockPath)
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		listener.Close()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&sockPath, "sock", "securestore.sock", "unix socket path to serve status on")
}
