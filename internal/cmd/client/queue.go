// Package client contains Cobra CLI commands for smq.
package client

import (
	"errors"

	"github.com/spf13/cobra"
)

var errNeedConfirm = errors.New("refusing to purge without --confirm")

// NewQueueCommand constructs the `queue` command group and subcommands.
func NewQueueCommand(baseURL BaseURLFunc) *cobra.Command {
	queueCmd := &cobra.Command{Use: "queue", Short: "Queue operations"}

	queueCmd.AddCommand(
		newQueueAddCommand(baseURL),
		newQueueGetCommand(baseURL),
		newQueuePeekCommand(baseURL),
		newQueueDeleteCommand(baseURL),
		newQueueRetryCommand(baseURL),
		newQueuePurgeCommand(baseURL),
		newQueueStatsCommand(baseURL),
	)

	return queueCmd
}

// newQueueAddCommand constructs the `queue add` subcommand.
func newQueueAddCommand(baseURL BaseURLFunc) *cobra.Command {
	addCmd := &cobra.Command{
		Use:   "add [body]",
		Short: "Enqueue a message",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, _ := cmd.Flags().GetString("body")
			if len(args) == 1 {
				body = args[0]
			}
			data, err := postJSON(cmd.Context(), baseURL()+"/add", map[string]string{"body": body})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}
	addCmd.Flags().String("body", "", "Message body (alternative to positional arg)")
	return addCmd
}

// newQueueGetCommand constructs the `queue get` subcommand.
func newQueueGetCommand(baseURL BaseURLFunc) *cobra.Command {
	getCmd := &cobra.Command{
		Use:   "get",
		Short: "Lease messages from the ready head",
		RunE: func(cmd *cobra.Command, _ []string) error {
			count, _ := cmd.Flags().GetInt("count")
			data, err := postJSON(cmd.Context(), baseURL()+"/get", map[string]int{"count": count})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}
	getCmd.Flags().IntP("count", "c", 1, "Maximum messages to lease")
	return getCmd
}

// newQueuePeekCommand constructs the `queue peek` subcommand.
func newQueuePeekCommand(baseURL BaseURLFunc) *cobra.Command {
	peekCmd := &cobra.Command{
		Use:   "peek",
		Short: "Preview ready messages without leasing them",
		RunE: func(cmd *cobra.Command, _ []string) error {
			count, _ := cmd.Flags().GetInt("count")
			filter, _ := cmd.Flags().GetString("filter")
			data, err := postJSON(cmd.Context(), baseURL()+"/peek", map[string]any{"count": count, "filter": filter})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}
	peekCmd.Flags().IntP("count", "c", 1, "Maximum messages to preview")
	peekCmd.Flags().String("filter", "", "CEL filter over body/retry_count/size/ts_ms/json")
	return peekCmd
}

// newQueueDeleteCommand constructs the `queue delete` subcommand.
func newQueueDeleteCommand(baseURL BaseURLFunc) *cobra.Command {
	deleteCmd := &cobra.Command{
		Use:   "delete <id> [id...]",
		Short: "Acknowledge leased messages",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := postJSON(cmd.Context(), baseURL()+"/delete", map[string][]string{"ids": args})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}
	return deleteCmd
}

// newQueueRetryCommand constructs the `queue retry` subcommand.
func newQueueRetryCommand(baseURL BaseURLFunc) *cobra.Command {
	retryCmd := &cobra.Command{
		Use:   "retry <id> [id...]",
		Short: "Release leased messages back to the ready tail",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := postJSON(cmd.Context(), baseURL()+"/retry", map[string][]string{"ids": args})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}
	return retryCmd
}

// newQueuePurgeCommand constructs the `queue purge` subcommand.
func newQueuePurgeCommand(baseURL BaseURLFunc) *cobra.Command {
	purgeCmd := &cobra.Command{
		Use:   "purge",
		Short: "Drop every message in the queue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			confirm, _ := cmd.Flags().GetBool("confirm")
			if !confirm {
				return errNeedConfirm
			}
			data, err := postJSON(cmd.Context(), baseURL()+"/purge", nil)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}
	purgeCmd.Flags().Bool("confirm", false, "Required to actually purge")
	return purgeCmd
}

// newQueueStatsCommand constructs the `queue stats` subcommand.
func newQueueStatsCommand(baseURL BaseURLFunc) *cobra.Command {
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show ready and in-flight counts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := getJSON(cmd.Context(), baseURL()+"/stats")
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}
	return statsCmd
}
