package tx

import (
	"github.com/ValentinKolb/txkv/cmd/util"
	"github.com/ValentinKolb/txkv/rpc/client"
	"github.com/spf13/cobra"
)

var (
	txClient client.ITxClient

	// TxCommands represents the transaction command group
	TxCommands = &cobra.Command{
		Use:   "tx",
		Short: "Perform transactional key-value operations",
		Long: `Perform transactional key-value operations against a txKV server.

Every write starts a new transaction and prints its id. The written value
stays pending until the transaction is committed with "tx commit <id>".`,
		PersistentPreRunE:  setupTxClient,
		PersistentPostRunE: closeTxClient,
	}
)

func init() {
	// Add common RPC flags to the tx command
	util.SetupRPCClientFlags(TxCommands)

	// Add subcommands
	TxCommands.AddCommand(readCmd)
	TxCommands.AddCommand(writeCmd)
	TxCommands.AddCommand(commitCmd)
	TxCommands.AddCommand(rollbackCmd)
	TxCommands.AddCommand(snapshotCmd)
	TxCommands.AddCommand(shellCmd)
	TxCommands.AddCommand(perfTestCmd)
}

// setupTxClient initializes the RPC client
func setupTxClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	// the perf command opens its own connections
	if cmd == perfTestCmd {
		return nil
	}

	var err error
	txClient, err = util.NewClient()
	return err
}

// closeTxClient closes the connection opened by setupTxClient
func closeTxClient(_ *cobra.Command, _ []string) error {
	if txClient == nil {
		return nil
	}
	return txClient.Close()
}
