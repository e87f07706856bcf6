package serve

import (
	"os"
	"os/signal"
	"syscall"

	cmdUtil "github.com/ValentinKolb/txkv/cmd/util"
	"github.com/ValentinKolb/txkv/rpc/common"
	"github.com/ValentinKolb/txkv/rpc/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the txKV server",
		Long:    `Start the txKV server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is TXKV_<flag> (e.g. TXKV_DATA_FILE=state.snap)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// add flags
	key := "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:8080", cmdUtil.WrapString("The address on which the API will listen (e.g. localhost:8080, /tmp/txkv.sock, ...)"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int64(key, 5, cmdUtil.WrapString("Timeout in seconds for writing a response"))

	key = "data-file"
	ServeCmd.PersistentFlags().String(key, "txkv.snap", cmdUtil.WrapString("Path of the snapshot file committed data is persisted to. An empty value keeps committed data in memory only"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))

	key = "tcp-nodelay"
	ServeCmd.PersistentFlags().Bool(key, true, cmdUtil.WrapString("Whether to enable TCP_NODELAY on accepted connections (only for tcp)"))

	key = "tcp-keepalive"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("The keepalive interval in seconds, 0 disables keepalive (only for tcp)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// read the configuration from the command line flags and environment variables
	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.TimeoutSecond = viper.GetInt64("timeout")
	serveCmdConfig.DataFile = viper.GetString("data-file")
	serveCmdConfig.LogLevel = viper.GetString("log-level")
	serveCmdConfig.TCP = common.TCPConf{
		TCPNoDelay:      viper.GetBool("tcp-nodelay"),
		TCPKeepAliveSec: viper.GetInt("tcp-keepalive"),
	}

	// fail early on an invalid level
	_, err := common.ParseLogLevel(serveCmdConfig.LogLevel)
	return err
}

// run starts the txKV server and stops it on SIGINT or SIGTERM
func run(_ *cobra.Command, _ []string) error {
	s, err := cmdUtil.GetSerializer()
	if err != nil {
		return err
	}

	t, err := cmdUtil.GetServerTransport()
	if err != nil {
		return err
	}

	serv := server.NewRPCServer(
		*serveCmdConfig,
		t,
		s,
	)

	// stop the server on SIGINT or SIGTERM, every commit is already durable
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)
	go func() {
		sig := <-signals
		server.Logger.Infof("received %s, shutting down", sig)
		_ = serv.Close()
	}()

	return serv.Serve()
}
