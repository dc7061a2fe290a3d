package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/polkiloo/boxoffice/internal/config"
	"github.com/polkiloo/boxoffice/internal/domain/model"
)

// Operator is the slice of the lifecycle service exposed to operators.
type Operator interface {
	DueForExpiry(ctx context.Context, limit int) ([]int64, error)
	Expire(ctx context.Context, orderID int64) (bool, error)
	Confirm(ctx context.Context, orderID int64) (*model.Order, error)
	Complete(ctx context.Context, orderID int64) (*model.Order, error)
}

// TokenIssuer mints bearer tokens.
type TokenIssuer interface {
	IssueToken(userID int64) (string, error)
}

// Runtime is an opened service graph. Close releases its connections.
type Runtime struct {
	Operator Operator
	Config   *config.Config
	Close    func(context.Context) error
}

// Deps lets tests replace the database-backed runtime and the token issuer.
type Deps struct {
	Open   func(ctx context.Context) (*Runtime, error)
	Tokens func(ttl time.Duration) (TokenIssuer, error)
}

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format  string
	Timeout time.Duration
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the boxofficectl command tree.
func NewRootCommand(deps Deps) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "boxofficectl",
		Short: "Operator tooling for the boxoffice order service",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			for _, f := range ValidFormats {
				if f == opts.Format {
					return nil
				}
			}
			return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 30*time.Second, "overall command timeout")

	cmd.AddCommand(newSweepCommand(opts, deps))
	cmd.AddCommand(newCompleteCommand(opts, deps))
	cmd.AddCommand(newConfirmCommand(opts, deps))
	cmd.AddCommand(newTokenCommand(opts, deps))

	return cmd
}

// withRuntime opens the service graph for the duration of fn.
func withRuntime(cmd *cobra.Command, opts *RootOptions, deps Deps, fn func(context.Context, *Runtime) error) (err error) {
	ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
	defer cancel()

	rt, err := deps.Open(ctx)
	if err != nil {
		return fmt.Errorf("open service: %w", err)
	}
	defer func() {
		if rt.Close == nil {
			return
		}
		if closeErr := rt.Close(context.WithoutCancel(ctx)); closeErr != nil && err == nil {
			err = fmt.Errorf("close service: %w", closeErr)
		}
	}()
	return fn(ctx, rt)
}
