package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/polkiloo/boxoffice/internal/domain/model"
)

type sweepResult struct {
	Expired int `json:"expired"`
}

type tokenResult struct {
	UserID int64  `json:"user_id"`
	Token  string `json:"token"`
}

type orderResult struct {
	ID          int64      `json:"id"`
	Number      string     `json:"number"`
	Status      string     `json:"status"`
	Total       int64      `json:"total"`
	Tickets     int        `json:"tickets"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func writeOrder(cmd *cobra.Command, opts *RootOptions, order *model.Order) error {
	res := orderResult{
		ID:          order.ID,
		Number:      order.Number,
		Status:      string(order.Status),
		Total:       order.Total,
		Tickets:     len(order.Tickets),
		PaidAt:      order.PaidAt,
		CompletedAt: order.CompletedAt,
	}
	return writeResult(cmd, opts, res, fmt.Sprintf("order %d (%s) is %s", order.ID, order.Number, order.Status))
}

func writeResult(cmd *cobra.Command, opts *RootOptions, v any, text string) error {
	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := fmt.Fprintln(out, text)
	return err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}
