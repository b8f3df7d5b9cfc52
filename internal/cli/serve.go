package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/roach88/lifeledger/internal/config"
	"github.com/roach88/lifeledger/internal/ledger"
	"github.com/roach88/lifeledger/internal/lifesteal"
	"github.com/roach88/lifeledger/internal/schedule"
)

// pruneInterval is how often serve drops expired withdraw cooldowns.
const pruneInterval = time.Minute

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Workers         int
	Autosave        time.Duration
	ShutdownTimeout time.Duration
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the ledger over an event stream on stdin",
		Long: `Run the ledger, applying participant events read line by line from stdin.

Events:
  join <id> [name=<name>] [zone=<zone>] [locality=<loc>] [exempt=true]
  leave <id>
  eliminate <id> [by=<winner>]
  withdraw <id>
  consume <id>
  stats <id>
  flush

Host effects (broadcasts, commands, notifications, health) are written to
stdout. SIGHUP reloads the configuration file. SIGINT, SIGTERM or the end of
input stop the server: queued work is drained and every record is saved.

Example:
  lifeledger serve --data-dir ./data --workers 4
  printf 'join alice\njoin bob\neliminate alice by=bob\n' | lifeledger serve`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("workers") {
				opts.Workers = opts.Env.Workers
			}
			if !cmd.Flags().Changed("autosave") {
				opts.Autosave = opts.Env.Autosave
			}
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Workers, "workers", 1, "number of locality workers (default $LIFELEDGER_WORKERS)")
	cmd.Flags().DurationVar(&opts.Autosave, "autosave", 5*time.Minute, "interval between background saves, 0 disables (default $LIFELEDGER_AUTOSAVE)")
	cmd.Flags().DurationVar(&opts.ShutdownTimeout, "shutdown-timeout", 10*time.Second, "how long to wait for queued work on shutdown")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	sess, err := openSession(opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	final := &finalSave{sess: sess}
	atexit.Register(final.atExit)

	runner := schedule.New(opts.Workers)
	host := newConsoleHost(cmd.OutOrStdout())
	srv := &server{
		handler:  lifesteal.NewHandler(sess.ledger, sess.provider, runner, host),
		ledger:   sess.ledger,
		runner:   runner,
		out:      host,
		sessions: make(map[string]lifesteal.Participant),
	}

	ctx, cancel := context.WithCancel(cmdContext(cmd))
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		for {
			select {
			case sig := <-sigChan:
				if sig == syscall.SIGHUP {
					_ = sess.provider.Reload()
					continue
				}
				slog.Info("received signal, shutting down", "signal", sig)
				cancel()
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	var background sync.WaitGroup
	if opts.Autosave > 0 {
		background.Add(1)
		go func() {
			defer background.Done()
			_ = sess.ledger.Autosave(ctx, opts.Autosave)
		}()
	}
	background.Add(1)
	go func() {
		defer background.Done()
		pruneCooldowns(ctx, sess.ledger, sess.provider)
	}()

	slog.Info("ledger serving", "backend", opts.Backend, "data_dir", opts.DataDir, "workers", opts.Workers)

	// Work submitted to the scheduler must survive the shutdown signal so
	// queued events are still applied and saved while draining.
	workCtx := context.WithoutCancel(ctx)
	lines := readLines(ctx, cmd.InOrStdin())

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case line, ok := <-lines:
			if !ok {
				slog.Info("event stream closed")
				break loop
			}
			srv.handleLine(workCtx, line)
		}
	}

	cancel()
	background.Wait()

	closeCtx, closeCancel := context.WithTimeout(context.Background(), opts.ShutdownTimeout)
	defer closeCancel()
	if err := runner.Close(closeCtx); err != nil {
		slog.Warn("scheduler did not drain before timeout", "error", err)
	}

	if err := sess.ledger.FlushAll(context.Background()); err != nil {
		// The session stays open so the exit handler can retry the save.
		return WrapExitError(ExitFailure, "failed to save participant data", err)
	}
	final.release()
	slog.Info("ledger stopped gracefully")
	return nil
}

// finalSave owns the end of a serve session. A clean shutdown saves and
// calls release; when that save failed, the exit handler retries it before
// releasing. The session is closed exactly once.
type finalSave struct {
	sess   *session
	closed atomic.Bool
}

func (f *finalSave) release() {
	if f.closed.CompareAndSwap(false, true) {
		f.sess.Close()
	}
}

func (f *finalSave) atExit() {
	if f.closed.Load() {
		return
	}
	if err := f.sess.ledger.FlushAll(context.Background()); err != nil {
		slog.Error("exit flush failed", "error", err)
	}
	f.release()
}

// readLines forwards r line by line until EOF or ctx ends. A read blocked in
// the scanner cannot be interrupted; the goroutine exits on its next line.
func readLines(ctx context.Context, r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			slog.Error("error reading events", "error", err)
		}
	}()
	return lines
}

func pruneCooldowns(ctx context.Context, l *ledger.Ledger, cfg config.Provider) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := l.PruneCooldowns(cfg.Current().CooldownWindow()); n > 0 {
				slog.Debug("expired cooldowns pruned", "count", n)
			}
		}
	}
}

// server applies input events to the handler. It is driven by a single
// goroutine.
type server struct {
	handler  *lifesteal.Handler
	ledger   *ledger.Ledger
	runner   schedule.Runner
	out      *consoleHost
	sessions map[string]lifesteal.Participant
}

func (s *server) handleLine(ctx context.Context, line string) {
	ev, ok, err := parseEvent(line)
	if err != nil {
		s.out.Printf("error: %v", err)
		return
	}
	if !ok {
		return
	}
	s.apply(ctx, ev)
}

// lookup returns the joined participant for id, or a bare participant when
// id never joined.
func (s *server) lookup(id string) lifesteal.Participant {
	if p, ok := s.sessions[id]; ok {
		return p
	}
	return inputEvent{ID: id}.participant()
}

func (s *server) apply(ctx context.Context, ev inputEvent) {
	switch ev.Verb {
	case verbJoin:
		p := ev.participant()
		s.sessions[p.ID] = p
		s.handler.Join(ctx, p)

	case verbLeave:
		p := s.lookup(ev.ID)
		delete(s.sessions, ev.ID)
		s.handler.Leave(ctx, p)

	case verbEliminate:
		loser := s.lookup(ev.ID)
		var winner *lifesteal.Participant
		if ev.Winner != "" {
			w := s.lookup(ev.Winner)
			winner = &w
		}
		s.handler.Elimination(ctx, loser, winner)

	case verbWithdraw:
		n, err := s.handler.Withdraw(ctx, s.lookup(ev.ID))
		s.report(ev, n, err)

	case verbConsume:
		n, err := s.handler.Consume(ctx, s.lookup(ev.ID))
		s.report(ev, n, err)

	case verbStats:
		st, err := s.handler.Stats(ctx, s.lookup(ev.ID))
		if err != nil {
			s.out.Printf("error: stats %s: %v", ev.ID, err)
			return
		}
		s.out.Printf("stats %s: resource=%d wins=%d losses=%d kd=%.2f",
			st.ID, st.Resource, st.Wins, st.Losses, st.KDRatio)

	case verbFlush:
		// Save what the events read so far produced, not a snapshot taken
		// ahead of them.
		if err := s.runner.Barrier(ctx); err != nil {
			s.out.Printf("error: flush: %v", err)
			return
		}
		if err := s.ledger.FlushAll(ctx); err != nil {
			s.out.Printf("error: flush: %v", err)
			return
		}
		s.out.Printf("flushed")
	}
}

func (s *server) report(ev inputEvent, n int, err error) {
	var ae *lifesteal.ActionError
	switch {
	case err == nil:
		s.out.Printf("%s %s: %d", ev.Verb, ev.ID, n)
	case errors.As(err, &ae):
		s.out.Printf("%s %s rejected [%s]: %s", ev.Verb, ev.ID, ae.Code, ae.Message)
	default:
		s.out.Printf("error: %s %s: %v", ev.Verb, ev.ID, err)
	}
}

var _ lifesteal.Host = (*consoleHost)(nil)

// consoleHost writes host effects to a writer, one line each. Calls arrive
// from scheduler workers, so writes are serialized.
type consoleHost struct {
	mu sync.Mutex
	w  io.Writer
}

func newConsoleHost(w io.Writer) *consoleHost {
	return &consoleHost{w: w}
}

func (h *consoleHost) Broadcast(message string) {
	h.Printf("broadcast: %s", message)
}

func (h *consoleHost) Dispatch(command string) {
	h.Printf("dispatch: %s", command)
}

func (h *consoleHost) Notify(p lifesteal.Participant, message string) {
	h.Printf("notify %s: %s", p.ID, message)
}

func (h *consoleHost) SetMaxHealth(p lifesteal.Participant, halfUnits int) {
	h.Printf("health %s: %d", p.ID, halfUnits)
}

// Printf writes one formatted line.
func (h *consoleHost) Printf(format string, args ...any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fmt.Fprintf(h.w, format+"\n", args...)
}
