package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/lifeledger/internal/store"
)

// RecordView is the output form of a participant record.
type RecordView struct {
	ID       string  `json:"id"`
	Resource int     `json:"resource"`
	Wins     int     `json:"wins"`
	Losses   int     `json:"losses"`
	KDRatio  float64 `json:"kd_ratio"`
}

func newRecordView(rec store.Record) RecordView {
	return RecordView{
		ID:       rec.ID,
		Resource: rec.Resource,
		Wins:     rec.Wins,
		Losses:   rec.Losses,
		KDRatio:  rec.KDRatio(),
	}
}

// SetResult reports a set command.
type SetResult struct {
	ID        string `json:"id"`
	Requested int    `json:"requested"`
	Resource  int    `json:"resource"`
	Clamped   bool   `json:"clamped"`
}

// TopOptions holds flags for the top command.
type TopOptions struct {
	*RootOptions
	Limit int
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <participant>",
		Short: "Show a participant's resource level",
		Long: `Show the stored resource level of one participant.

The record is read as the server would load it: a level outside the current
bounds is reported clamped. Nothing is written.

Example:
  lifeledger get alice
  lifeledger get 3f2b6a1e-8c44-4d8e-9a57-0f1b2c3d4e5f --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := readRecord(cmd, rootOpts, args[0])
			if err != nil {
				return err
			}
			f := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			return f.Emit(newRecordView(rec), func(w io.Writer) {
				fmt.Fprintf(w, "%s: %d\n", rec.ID, rec.Resource)
			})
		},
	}
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats <participant>",
		Short: "Show a participant's wins, losses and resource",
		Long: `Show the scoreboard line of one participant.

Example:
  lifeledger stats alice`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := readRecord(cmd, rootOpts, args[0])
			if err != nil {
				return err
			}
			view := newRecordView(rec)
			f := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			return f.Emit(view, func(w io.Writer) {
				fmt.Fprintf(w, "Participant: %s\n", view.ID)
				fmt.Fprintf(w, "  Resource: %d\n", view.Resource)
				fmt.Fprintf(w, "  Wins:     %d\n", view.Wins)
				fmt.Fprintf(w, "  Losses:   %d\n", view.Losses)
				fmt.Fprintf(w, "  K/D:      %.2f\n", view.KDRatio)
			})
		},
	}
}

// readRecord loads one stored record without creating it.
func readRecord(cmd *cobra.Command, opts *RootOptions, raw string) (store.Record, error) {
	id, err := parseParticipant(raw)
	if err != nil {
		return store.Record{}, err
	}

	sess, err := openSession(opts, cmd.ErrOrStderr())
	if err != nil {
		return store.Record{}, err
	}
	defer sess.Close()

	rec, err := sess.ledger.LoadStrict(cmdContext(cmd), id)
	switch {
	case store.IsNotFound(err):
		return store.Record{}, WrapExitError(ExitFailure, fmt.Sprintf("no record for participant %s", id), store.ErrRecordNotFound)
	case err != nil:
		return store.Record{}, WrapExitError(ExitCommandError, "failed to load participant", err)
	}
	return rec, nil
}

// NewSetCommand creates the set command.
func NewSetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <participant> <level>",
		Short: "Set a participant's resource level",
		Long: `Set a participant's resource level and save it.

The level is clamped to the configured bounds first. A participant without a
record gets one.

Example:
  lifeledger set alice 30`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSet(rootOpts, args[0], args[1], cmd)
		},
	}
}

func runSet(opts *RootOptions, rawID, rawLevel string, cmd *cobra.Command) error {
	id, err := parseParticipant(rawID)
	if err != nil {
		return err
	}
	requested, err := strconv.Atoi(rawLevel)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid level", err)
	}

	sess, err := openSession(opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx := cmdContext(cmd)
	if err := sess.ledger.EnsureLoaded(ctx, id); err != nil {
		return WrapExitError(ExitCommandError, "failed to load participant", err)
	}

	level := sess.provider.Current().Clamp(requested)
	sess.ledger.Set(id, level)
	if err := sess.ledger.Flush(ctx, id); err != nil {
		return WrapExitError(ExitFailure, "failed to save participant", err)
	}
	slog.Info("resource set", "participant", id, "requested", requested, "resource", level)

	result := SetResult{ID: id, Requested: requested, Resource: level, Clamped: level != requested}
	f := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
	return f.Emit(result, func(w io.Writer) {
		if result.Clamped {
			fmt.Fprintf(w, "%s: %d (requested %d, clamped)\n", id, level, requested)
			return
		}
		fmt.Fprintf(w, "%s: %d\n", id, level)
	})
}

// NewTopCommand creates the top command.
func NewTopCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TopOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "top",
		Short: "List participants by resource level",
		Long: `List stored participants ordered by resource level, highest first.
Ties are ordered by id. Unreadable records are skipped with a warning.

Example:
  lifeledger top
  lifeledger top -n 3 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTop(opts, cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 10, "number of participants to show (0 for all)")

	return cmd
}

func runTop(opts *TopOptions, cmd *cobra.Command) error {
	sess, err := openSession(opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx := cmdContext(cmd)
	ids, err := sess.store.List(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list participants", err)
	}
	for _, id := range ids {
		if _, err := sess.ledger.LoadStrict(ctx, id); err != nil {
			slog.Warn("skipping unreadable record", "participant", id, "error", err)
		}
	}

	top := sess.ledger.Top(opts.Limit)
	views := make([]RecordView, 0, len(top))
	for _, rec := range top {
		views = append(views, newRecordView(rec))
	}

	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	return f.Emit(views, func(w io.Writer) {
		if len(views) == 0 {
			fmt.Fprintln(w, "No participants found.")
			return
		}
		for i, v := range views {
			fmt.Fprintf(w, "%2d. %-24s %3d  (%d/%d)\n", i+1, v.ID, v.Resource, v.Wins, v.Losses)
		}
	})
}

// cmdContext returns the command's context, or Background when the command
// runs outside Execute (tests).
func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
