package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/polkiloo/boxoffice/internal/worker"
)

func newSweepCommand(opts *RootOptions, deps Deps) *cobra.Command {
	var batch int
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Expire pending orders whose window has elapsed",
		Long: `Run one expiry pass: cancel due pending orders and release their
reservations. Passes repeat until a batch comes back short.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, opts, deps, func(ctx context.Context, rt *Runtime) error {
				size := batch
				if size <= 0 {
					size = rt.Config.SweepBatch
				}
				sweeper := worker.NewExpirySweeper(rt.Operator, rt.Config.SweepInterval, size, 1, nil, discardLogger())
				total := 0
				for {
					n, err := sweeper.SweepOnce(ctx)
					total += n
					if err != nil {
						return err
					}
					if n < size {
						break
					}
				}
				return writeResult(cmd, opts, sweepResult{Expired: total}, fmt.Sprintf("expired %d orders", total))
			})
		},
	}
	cmd.Flags().IntVar(&batch, "batch", 0, "orders per pass (defaults to SWEEP_BATCH)")
	return cmd
}

func newCompleteCommand(opts *RootOptions, deps Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "complete <order-id>",
		Short: "Record fulfilment of a paid order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseOrderID(args[0])
			if err != nil {
				return err
			}
			return withRuntime(cmd, opts, deps, func(ctx context.Context, rt *Runtime) error {
				order, err := rt.Operator.Complete(ctx, id)
				if err != nil {
					return err
				}
				return writeOrder(cmd, opts, order)
			})
		},
	}
}

func newConfirmCommand(opts *RootOptions, deps Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "confirm <order-id>",
		Short: "Mark a pending order paid without a gateway callback",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseOrderID(args[0])
			if err != nil {
				return err
			}
			return withRuntime(cmd, opts, deps, func(ctx context.Context, rt *Runtime) error {
				if !rt.Config.SandboxPayments {
					return fmt.Errorf("manual confirmation requires SANDBOX_PAYMENTS=true")
				}
				order, err := rt.Operator.Confirm(ctx, id)
				if err != nil {
					return err
				}
				return writeOrder(cmd, opts, order)
			})
		},
	}
}

func newTokenCommand(opts *RootOptions, deps Deps) *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Mint a bearer token for a user id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || userID <= 0 {
				return fmt.Errorf("invalid user id %q", args[0])
			}
			issuer, err := deps.Tokens(ttl)
			if err != nil {
				return err
			}
			token, err := issuer.IssueToken(userID)
			if err != nil {
				return err
			}
			return writeResult(cmd, opts, tokenResult{UserID: userID, Token: token}, token)
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}

func parseOrderID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid order id %q", arg)
	}
	return id, nil
}
