package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/theirongolddev/financas/internal/cli"
	"github.com/theirongolddev/financas/internal/config"
	"github.com/theirongolddev/financas/internal/daemon"
	"github.com/theirongolddev/financas/internal/logger"

	"github.com/spf13/cobra"
)

type serverState struct {
	PID       int       `json:"pid"`
	Addr      string    `json:"addr"`
	StartedAt time.Time `json:"started_at"`
	File      string    `json:"file,omitempty"`
}

var (
	flagServeAddr         string
	flagServeInterval     time.Duration
	flagServeDetach       bool
	flagServePIDFile      string
	flagServeLogFile      string
	flagServeEventsBuffer int
	flagServeChild        bool
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"daemon"},
	Short:   "Run the HTTP report service (watches --file and the SELIC rate)",
	Long: "Serves JSON reports: POST /v1/report with a CSV body, GET /v1/report for the\n" +
		"watched export, GET /v1/rates, GET /v1/status, GET /v1/events and GET /v1/stream (SSE).",
	RunE: runServe,
}

var serveStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server process and API status",
	RunE:  runServeStatus,
}

var serveStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running server",
	RunE:  runServeStop,
}

func init() {
	defaultPID := filepath.Join(config.CacheDir(), "financasd.pid")
	defaultLog := filepath.Join(config.CacheDir(), "financasd.log")

	serveCmd.PersistentFlags().StringVar(&flagServeAddr, "addr", "", "HTTP listen address (default server.addr)")
	serveCmd.PersistentFlags().DurationVar(&flagServeInterval, "interval", 5*time.Minute, "Polling interval for the export and rate")
	serveCmd.PersistentFlags().StringVar(&flagServePIDFile, "pid-file", defaultPID, "PID file path")
	serveCmd.PersistentFlags().StringVar(&flagServeLogFile, "log-file", defaultLog, "Log file path for detached mode")
	serveCmd.PersistentFlags().IntVar(&flagServeEventsBuffer, "events-buffer", 200, "Max in-memory events retained")

	serveCmd.Flags().BoolVar(&flagServeDetach, "detach", false, "Run the server as a background process")
	serveCmd.Flags().BoolVar(&flagServeChild, "child", false, "Internal: mark detached child process")
	_ = serveCmd.Flags().MarkHidden("child")

	serveCmd.AddCommand(serveStatusCmd)
	serveCmd.AddCommand(serveStopCmd)
	rootCmd.AddCommand(serveCmd)
}

func serveAddr() string {
	if flagServeAddr != "" {
		return flagServeAddr
	}
	return cfg.Server.Addr
}

func runServe(cmd *cobra.Command, _ []string) error {
	if flagServeDetach && flagServeChild {
		return errors.New("invalid server launch mode")
	}
	if flagServeDetach {
		return startServerDetached()
	}
	return runServerForeground(cmd.Context())
}

func startServerDetached() error {
	if err := ensureServerNotRunning(flagServePIDFile); err != nil {
		return err
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}

	args := filterDetachArg(os.Args[1:])
	args = append(args, "--child")

	if err := os.MkdirAll(filepath.Dir(flagServePIDFile), 0o750); err != nil {
		return fmt.Errorf("create server directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(flagServeLogFile), 0o750); err != nil {
		return fmt.Errorf("create server log directory: %w", err)
	}

	//nolint:gosec // log path is configured by the local user
	logf, err := os.OpenFile(flagServeLogFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open server log file: %w", err)
	}
	defer func() { _ = logf.Close() }()

	child := exec.Command(exe, args...) //nolint:gosec // exe/args come from current process invocation
	child.Stdout = logf
	child.Stderr = logf
	child.Stdin = nil
	child.Env = os.Environ()

	if err := child.Start(); err != nil {
		return fmt.Errorf("start detached server: %w", err)
	}

	fmt.Printf("  Started server (pid %d)\n", child.Process.Pid)
	fmt.Printf("  PID file: %s\n", flagServePIDFile)
	fmt.Printf("  API: http://%s/v1/status\n", serveAddr())
	fmt.Printf("  Log: %s\n", flagServeLogFile)
	return nil
}

func runServerForeground(ctx context.Context) error {
	if err := ensureServerNotRunning(flagServePIDFile); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(flagServePIDFile), 0o750); err != nil {
		return fmt.Errorf("create server directory: %w", err)
	}

	stats, err := statsOptions()
	if err != nil {
		return err
	}
	fallback, err := config.GetFallbackRate(cfg)
	if err != nil {
		return err
	}
	file := flagFile
	if file == "" {
		file = config.GetFile(cfg)
	}

	pid := os.Getpid()
	if err := writePID(flagServePIDFile, pid); err != nil {
		return err
	}
	defer func() { _ = os.Remove(flagServePIDFile) }()

	addr := serveAddr()
	_ = writeState(statePath(flagServePIDFile), serverState{
		PID:       pid,
		Addr:      addr,
		StartedAt: time.Now(),
		File:      file,
	})
	defer func() { _ = os.Remove(statePath(flagServePIDFile)) }()

	provider, closeFn := openProvider()
	defer closeFn()

	svc := daemon.New(daemon.Config{
		File:         file,
		Stats:        stats,
		Provider:     provider,
		FallbackRate: fallback,
		Interval:     flagServeInterval,
		Addr:         addr,
		EventsBuffer: flagServeEventsBuffer,
		Logger:       logger.FromContext(ctx),
	})

	fmt.Printf("  financas server listening on http://%s\n", addr)
	if file != "" {
		fmt.Printf("  Watching %s every %s\n", file, flagServeInterval)
	} else {
		fmt.Printf("  Polling the SELIC rate every %s (no export watched)\n", flagServeInterval)
	}
	fmt.Printf("  Stop with: financas serve stop --pid-file %s\n", flagServePIDFile)

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runServeStatus(_ *cobra.Command, _ []string) error {
	pid, err := readPID(flagServePIDFile)
	if err != nil {
		fmt.Printf("  Server: not running (pid file not found)\n")
		return nil
	}
	if !processAlive(pid) {
		fmt.Printf("  Server: stale pid file (pid %d not alive)\n", pid)
		return nil
	}

	addr := serveAddr()
	if st, err := readState(statePath(flagServePIDFile)); err == nil && st.Addr != "" {
		addr = st.Addr
	}

	fmt.Printf("  Server PID: %d\n", pid)
	fmt.Printf("  Address: http://%s\n", addr)

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + addr + "/v1/status") //nolint:noctx // short status probe
	if err != nil {
		fmt.Printf("  API status: unreachable (%v)\n", err)
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		fmt.Printf("  API status: HTTP %d\n", resp.StatusCode)
		return nil
	}

	var st daemon.Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		fmt.Printf("  API status: malformed response (%v)\n", err)
		return nil
	}

	if st.LastPollAt.IsZero() {
		fmt.Printf("  Last poll: pending\n")
	} else {
		fmt.Printf("  Last poll: %s\n", st.LastPollAt.Local().Format(time.RFC3339))
	}
	fmt.Printf("  Poll count: %d\n", st.PollCount)
	if st.File != "" {
		fmt.Printf("  Export: %s\n", st.File)
		fmt.Printf("  Transactions: %s\n", cli.FormatNumber(int64(st.Summary.Transactions)))
		fmt.Printf("  Net worth: %s (%s)\n", cli.FormatBRL(st.Summary.NetWorth), st.Summary.LatestDate)
	}
	if st.Summary.RatePercent != nil {
		fmt.Printf("  SELIC: %s since %s\n", cli.FormatRate(*st.Summary.RatePercent), st.Summary.RateSince)
	}
	if st.LastError != "" {
		fmt.Printf("  Last error: %s\n", st.LastError)
	}
	return nil
}

func runServeStop(_ *cobra.Command, _ []string) error {
	pid, err := readPID(flagServePIDFile)
	if err != nil {
		return errors.New("server is not running")
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find server process: %w", err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal server process: %w", err)
	}

	deadline := time.Now().Add(8 * time.Second)
	for time.Now().Before(deadline) {
		if !processAlive(pid) {
			_ = os.Remove(flagServePIDFile)
			_ = os.Remove(statePath(flagServePIDFile))
			fmt.Printf("  Stopped server (pid %d)\n", pid)
			return nil
		}
		time.Sleep(150 * time.Millisecond)
	}
	return fmt.Errorf("server (pid %d) did not exit in time", pid)
}

func filterDetachArg(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if a == "--detach" || strings.HasPrefix(a, "--detach=") {
			continue
		}
		out = append(out, a)
	}
	return out
}

func ensureServerNotRunning(pidFile string) error {
	pid, err := readPID(pidFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if processAlive(pid) {
		return fmt.Errorf("server already running (pid %d)", pid)
	}
	_ = os.Remove(pidFile)
	_ = os.Remove(statePath(pidFile))
	return nil
}

func writePID(path string, pid int) error {
	return os.WriteFile(path, []byte(strconv.Itoa(pid)+"\n"), 0o600)
}

func readPID(path string) (int, error) {
	//nolint:gosec // pid path is configured by the local user
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid pid in %s", path)
	}
	return pid, nil
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

func statePath(pidFile string) string {
	return pidFile + ".json"
}

func writeState(path string, st serverState) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}

func readState(path string) (serverState, error) {
	var st serverState
	//nolint:gosec // state path is configured by the local user
	data, err := os.ReadFile(path)
	if err != nil {
		return st, err
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return st, err
	}
	return st, nil
}
