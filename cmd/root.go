package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/txkv/cmd/serve"
	"github.com/ValentinKolb/txkv/cmd/tx"
	"github.com/ValentinKolb/txkv/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "0.1.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "txkv",
		Short: "transactional key-value store",
		Long: fmt.Sprintf(`txKV (v%s)

A minimal transactional key-value store. Clients write into transactions,
read their own pending writes and make them durable with a commit.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of txKV",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("txKV v%s\n", Version)
		},
	}
)

func init() {
	// initialize viper (.env files and TXKV_* environment variables)
	cobra.OnInitialize(util.InitConfig)

	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(tx.TxCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "serializer"
	RootCmd.PersistentFlags().String(key, "binary", util.WrapString("serializer to use (json, gob, binary)"))
	key = "transport"
	RootCmd.PersistentFlags().String(key, "tcp", util.WrapString("transport to use (http, tcp, unix)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
