// codemedic debugs source code through three cooperating generation calls:
// a scanner that detects errors, a fixer that proposes a minimal repair, and
// a validator that judges the repair. The command-line front end here is a
// thin consumer of the session entry point.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"codemedic/internal/config"
	"codemedic/internal/logging"
	"codemedic/internal/perception"
	"codemedic/internal/session"
	"codemedic/internal/store"
)

var (
	verbose     bool
	configPath  string
	dbPath      string
	maxAttempts int
	callTimeout time.Duration

	cfg     config.Config
	gateway *perception.Gateway
)

var rootCmd = &cobra.Command{
	Use:   "codemedic",
	Short: "codemedic - resilient multi-agent code debugger",
	Long: `codemedic runs a detect/repair/verify pipeline over source code using an
unreliable text-generation backend, absorbing provider failures, quota
limits and malformed responses behind a recovery gateway.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logging.Init(verbose); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}

		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if maxAttempts > 0 {
			cfg.MaxFixAttempts = maxAttempts
		}
		if callTimeout > 0 {
			cfg.CallTimeout = callTimeout
		}
		if dbPath != "" {
			cfg.DBPath = dbPath
		}

		gateway = perception.NewGatewayFromConfig(cfg)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

var debugCmd = &cobra.Command{
	Use:   "debug [file]",
	Short: "Debug a source file (or stdin when no file is given)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		code, err := readInput(args)
		if err != nil {
			return err
		}

		orch := session.New(gateway, cfg.MaxFixAttempts)
		state, err := orch.Run(cmd.Context(), code)
		if err != nil {
			return err
		}

		saveSession(state)
		printSummary(cmd.OutOrStdout(), state)
		return nil
	},
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect stored debug sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		sums, err := st.List(20)
		if err != nil {
			return err
		}
		if len(sums) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no sessions recorded")
			return nil
		}
		for _, s := range sums {
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %-12s attempts=%d  %s\n",
				s.ID, s.Status, s.Attempts, s.StartedAt.Format(time.RFC3339))
		}
		return nil
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one session in full",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		state, err := st.Get(args[0])
		if err != nil {
			return err
		}
		printSummary(cmd.OutOrStdout(), state)
		return nil
	},
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check backend connectivity and report the active provider",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "provider:  %s\n", cfg.Provider)
		fmt.Fprintf(out, "backends:  %s\n", perception.DescribeBackends(cfg))

		_, err := gateway.Generate(cmd.Context(),
			`Return this exact JSON: {"message": "Hello", "status": "working"}`)
		if err != nil {
			return fmt.Errorf("connection test failed: %w", err)
		}
		fmt.Fprintf(out, "active:    %s / %s\n", gateway.CurrentProvider(), gateway.CurrentModel())
		return nil
	},
}

func readInput(args []string) (string, error) {
	if len(args) == 1 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", args[0], err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(data), nil
}

func openStore() (*store.SessionStore, error) {
	path := cfg.DBPath
	if path == "" {
		path = defaultDBPath()
	}
	return store.Open(path)
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "codemedic.db"
	}
	return home + "/.codemedic/sessions.db"
}

// saveSession is best-effort: a broken history database never fails a run.
func saveSession(state *session.DebugState) {
	st, err := openStore()
	if err != nil {
		logging.Get(logging.CategoryCLI).Warnf("session not persisted: %v", err)
		return
	}
	defer st.Close()
	if err := st.Save(state); err != nil {
		logging.Get(logging.CategoryCLI).Warnf("session not persisted: %v", err)
	}
}

func printSummary(w io.Writer, state *session.DebugState) {
	fmt.Fprintf(w, "session:  %s\n", state.ID)
	fmt.Fprintf(w, "status:   %s\n", state.Status)
	fmt.Fprintf(w, "errors:   %d detected\n", len(state.DetectedErrors))
	for _, e := range state.DetectedErrors {
		if e.Line > 0 {
			fmt.Fprintf(w, "  [%s] line %d: %s\n", e.Kind, e.Line, e.Description)
		} else {
			fmt.Fprintf(w, "  [%s] %s\n", e.Kind, e.Description)
		}
	}
	fmt.Fprintf(w, "attempts: %d\n", len(state.Attempts))
	for _, a := range state.Attempts {
		fmt.Fprintf(w, "  #%d %s: %s\n", a.Seq, a.Validation.Verdict, a.Validation.Feedback)
	}
	if state.FinalCode != "" {
		fmt.Fprintf(w, "\n%s\n", state.FinalCode)
	}
}

func main() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "path to the session history database")
	rootCmd.PersistentFlags().IntVar(&maxAttempts, "attempts", 0, "override the fix/verify attempt bound")
	rootCmd.PersistentFlags().DurationVar(&callTimeout, "timeout", 0, "override the per-call backend timeout")

	sessionsCmd.AddCommand(sessionsListCmd, sessionsShowCmd)
	rootCmd.AddCommand(debugCmd, sessionsCmd, doctorCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
