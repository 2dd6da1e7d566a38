package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/extimsu/securestore/internal/cryptocore"
	"github.com/extimsu/securestore/internal/exitcodes"
	"github.com/extimsu/securestore/internal/processhardening"
)

var storeDir string

var rootCmd = &cobra.Command{
	Use:     "securestore",
	Short:   "Atomic, authenticated, encrypted single-file secure storage",
	Version: "0.1.0-dev",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if !cmd.Flags().Changed("store") {
			storeDir = viper.GetString("store")
		}
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	ph := processhardening.New()
	ph.HardenProcess()
	cryptocore.InitAdaptivePrefetcher()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// checkErr prints err, if any, and exits with the code Err2Exit maps it
// to instead of cobra.CheckErr's unconditional exit(1), so callers like
// scripts can branch on why a command failed.
func checkErr(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(exitcodes.Err2Exit(err))
}

func initConfig() {
	viper.SetConfigName("securestore")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.securestore")
	viper.AddConfigPath("/etc/securestore")

	viper.SetDefault("store", ".")

	viper.SetEnvPrefix("SECURESTORE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "reading config: %v\n", err)
		}
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&storeDir, "store", ".", "directory backing the store")
}
