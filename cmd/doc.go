// Package cmd implements the command-line interface of txKV. It provides a
// hierarchical command structure with operations for running the server and
// interacting with it as a client.
//
// The package is organized into several subpackages:
//
//   - serve: Command for starting and configuring the txKV server
//   - tx: Client commands (read, write, commit, rollback, snapshot), the interactive
//     shell and a performance testing tool
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// All flags can also be set as environment variables with the prefix TXKV_
// (e.g. TXKV_DATA_FILE=/var/lib/txkv/state.snap), .env and .env.local files are loaded
// on startup.
//
// See txkv -help for a list of all commands.
package cmd
