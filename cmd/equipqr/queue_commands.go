package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"equipqr/internal/api"
	"equipqr/internal/offline"
	"equipqr/internal/queue"
	"equipqr/internal/queueaccess"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage queued offline changes",
	}

	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueSyncCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueDismissCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))

	return queueCmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show connectivity, queue counts, and the sync banner",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(c context.Context, session queueaccess.Session) error {
				status, err := session.Access.Status(c)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, status)
				}
				renderStatus(cmd.OutOrStdout(), session.Access.Mode(), status)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print status as JSON")
	return cmd
}

func renderStatus(out io.Writer, mode string, status offline.Status) {
	fmt.Fprintf(out, "%s\n\n", status.Banner.Message)
	fmt.Fprintf(out, "Source:  %s\n", mode)
	fmt.Fprintf(out, "Online:  %s\n", yesNo(status.Online))
	fmt.Fprintf(out, "Syncing: %s\n", yesNo(status.Syncing))
	if status.LastSyncAt != nil {
		fmt.Fprintf(out, "Last sync: %s\n", formatTimestamp(*status.LastSyncAt))
	}
	if status.LastResult != nil {
		fmt.Fprintf(out, "Last result: %s\n", describeResult(*status.LastResult))
	}
	fmt.Fprintln(out)
	rows := [][]string{
		{"Pending", fmt.Sprintf("%d", status.PendingCount)},
		{"Processing", fmt.Sprintf("%d", status.ProcessingCount)},
		{"Failed", fmt.Sprintf("%d", status.FailedCount)},
	}
	fmt.Fprint(out, renderTable(out, []string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued changes in sync order",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses, err := parseStatusFlags(listStatuses)
			if err != nil {
				return err
			}
			return ctx.withSession(cmd, func(c context.Context, session queueaccess.Session) error {
				items, err := session.Access.List(c, statuses...)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSONList(cmd, api.FromQueueItems(items))
				}
				out := cmd.OutOrStdout()
				if len(items) == 0 {
					fmt.Fprintln(out, "Queue is empty")
					return nil
				}
				fmt.Fprint(out, renderTable(out,
					[]string{"ID", "Type", "Status", "Retries", "Queued", "Last Error"},
					buildQueueListRows(items),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by queue status (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print items as JSON")
	return cmd
}

func newQueueSyncCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replay pending changes against the server now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(c context.Context, session queueaccess.Session) error {
				result, err := session.Access.Sync(c)
				return reportSync(cmd.OutOrStdout(), result, err)
			})
		},
	}
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [id...]",
		Short: "Return failed changes to pending and sync",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(c context.Context, session queueaccess.Session) error {
				result, err := session.Access.Retry(c, args...)
				return reportSync(cmd.OutOrStdout(), result, err)
			})
		},
	}
}

// reportSync prints a pass result. Being offline is reported, not returned:
// queued changes are safe and will sync later.
func reportSync(out io.Writer, result offline.SyncResult, err error) error {
	if errors.Is(err, queue.ErrNetworkUnavailable) {
		fmt.Fprintf(out, "Offline: %s remain queued\n", pluralItems(result.Remaining))
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(out, describeResult(result))
	return nil
}

func newQueueDismissCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "dismiss <id>...",
		Short: "Discard queued changes without syncing them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(c context.Context, session queueaccess.Session) error {
				out := cmd.OutOrStdout()
				for _, id := range args {
					if err := session.Access.Dismiss(c, id); err != nil {
						if errors.Is(err, queue.ErrNotFound) {
							return fmt.Errorf("queued change %s not found", id)
						}
						return err
					}
					fmt.Fprintf(out, "Dismissed %s\n", id)
				}
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var clearAll bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove failed changes (or everything with --all)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(c context.Context, session queueaccess.Session) error {
				out := cmd.OutOrStdout()
				if clearAll {
					removed, err := session.Access.Clear(c)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Cleared %s; unsynced changes were discarded\n", pluralItems(int(removed)))
					return nil
				}
				removed, err := session.Access.ClearFailed(c)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Cleared %d failed %s\n", removed, pluralWord(int(removed), "item", "items"))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clearAll, "all", false, "Remove every queued change, including pending ones")
	return cmd
}
