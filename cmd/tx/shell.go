package tx

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ValentinKolb/txkv/rpc/client"
	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

var (
	shellCmd = &cobra.Command{
		Use:   "shell",
		Short: "Interactive txKV client",
		Long: `Interactive txKV client.

The basic shell offers read, write and rollback. The transaction id returned by
a write is printed but not kept. With --extended the shell also offers commit and
snapshot and remembers the transaction id of the last write: reads see its pending
value and commit or rollback apply to it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			extended, _ := cmd.Flags().GetBool("extended")
			return shellLoop(newShell(txClient, extended, os.Stdout))
		},
	}
)

func init() {
	shellCmd.Flags().Bool("extended", false, "enable commit and snapshot and keep the transaction id of the last write")
}

// shell holds the state of one interactive session
type shell struct {
	client   client.ITxClient
	extended bool
	txID     string // transaction of the last write (extended mode only)
	out      io.Writer
}

func newShell(c client.ITxClient, extended bool, out io.Writer) *shell {
	return &shell{
		client:   c,
		extended: extended,
		out:      out,
	}
}

func (s *shell) prompt() string {
	if s.extended && s.txID != "" {
		return fmt.Sprintf("\033[31mtxkv(%s)»\033[0m ", shortID(s.txID))
	}
	return "\033[31mtxkv»\033[0m "
}

// exec runs one line of input and reports whether the shell should exit
func (s *shell) exec(line string) (quit bool) {
	args := strings.Fields(line)
	if len(args) == 0 {
		return false
	}

	switch args[0] {
	case "exit", "quit":
		return true
	case "help":
		s.help()
	case "read":
		s.read(args[1:])
	case "write":
		s.write(args[1:])
	case "rollback":
		s.rollback(args[1:])
	case "commit":
		if !s.extended {
			s.unsupported(args[0])
			return false
		}
		s.commit(args[1:])
	case "snapshot":
		if !s.extended {
			s.unsupported(args[0])
			return false
		}
		s.snapshot()
	default:
		fmt.Fprintf(s.out, "unknown command %q, type help for a list of commands\n", args[0])
	}
	return false
}

// --------------------------------------------------------------------------
// Commands
// --------------------------------------------------------------------------

func (s *shell) help() {
	fmt.Fprintln(s.out, "read <key> [transaction_id]   read a value (pending value of the transaction if given)")
	fmt.Fprintln(s.out, "write <key> <value>           write a value in a new transaction")
	fmt.Fprintln(s.out, "rollback [transaction_id]     roll back a transaction")
	if s.extended {
		fmt.Fprintln(s.out, "commit [transaction_id]       commit a transaction")
		fmt.Fprintln(s.out, "snapshot                      print all committed values")
	}
	fmt.Fprintln(s.out, "exit                          leave the shell")
}

func (s *shell) read(args []string) {
	if len(args) < 1 || len(args) > 2 {
		fmt.Fprintln(s.out, "usage: read <key> [transaction_id]")
		return
	}
	key := args[0]
	txID := s.txID
	if len(args) == 2 {
		txID = args[1]
	}

	value, found, err := s.client.Read(key, txID)
	if err != nil {
		fmt.Fprintf(s.out, "Read %s failed: %v\n", key, err)
		return
	}
	if !found {
		fmt.Fprintf(s.out, "%s is not set\n", key)
		return
	}
	fmt.Fprintf(s.out, "%s=%q\n", key, value)
}

func (s *shell) write(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(s.out, "usage: write <key> <value>")
		return
	}
	key := args[0]
	value := strings.Join(args[1:], " ")

	txID, err := s.client.Write(key, []byte(value))
	if err != nil {
		fmt.Fprintf(s.out, "Write %s failed: %v\n", key, err)
		return
	}
	fmt.Fprintf(s.out, "State is updated, transaction_id=%s\n", txID)

	if s.extended {
		if s.txID != "" && s.txID != txID {
			fmt.Fprintf(s.out, "note: transaction %s is no longer tracked\n", s.txID)
		}
		s.txID = txID
	}
}

func (s *shell) commit(args []string) {
	txID := s.targetID(args)
	if txID == "" {
		fmt.Fprintln(s.out, "nothing to commit, write a value first")
		return
	}

	err := s.client.Commit(txID)
	// the transaction is gone either way
	if txID == s.txID {
		s.txID = ""
	}
	if err != nil {
		fmt.Fprintf(s.out, "Commit failed: %v\n", err)
		return
	}
	fmt.Fprintf(s.out, "Committed, transaction_id=%s\n", txID)
}

func (s *shell) rollback(args []string) {
	txID := s.targetID(args)

	err := s.client.Rollback(txID)
	if txID != "" && txID == s.txID {
		s.txID = ""
	}
	if err != nil {
		fmt.Fprintf(s.out, "Rollback failed: %v\n", err)
		return
	}
	fmt.Fprintln(s.out, "Rolled back")
}

func (s *shell) snapshot() {
	entries, err := s.client.Snapshot()
	if err != nil {
		fmt.Fprintf(s.out, "Snapshot failed: %v\n", err)
		return
	}
	printEntries(s.out, entries)
}

func (s *shell) unsupported(command string) {
	fmt.Fprintf(s.out, "%s is only available in the extended shell (--extended)\n", command)
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// targetID returns the transaction id given as argument or the tracked one
func (s *shell) targetID(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return s.txID
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// shellLoop reads commands until exit, EOF or interrupt
func shellLoop(s *shell) error {
	l, err := readline.NewEx(&readline.Config{
		Prompt:            s.prompt(),
		HistoryFile:       filepath.Join(os.TempDir(), "txkv_history.tmp"),
		InterruptPrompt:   "^C",
		EOFPrompt:         "^D",
		HistorySearchFold: true,
	})
	if err != nil {
		return err
	}
	defer l.Close()

	fmt.Fprintln(s.out, "txKV shell, type help for a list of commands")

	for {
		line, err := l.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				return nil
			}
			continue
		}
		if s.exec(line) {
			return nil
		}
		l.SetPrompt(s.prompt())
	}
}
