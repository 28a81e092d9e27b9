package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"equipqr/internal/backend"
	"equipqr/internal/cache"
	"equipqr/internal/config"
	"equipqr/internal/domain"
	"equipqr/internal/merge"
	"equipqr/internal/queueaccess"
)

const pendingMarker = "pending"

func newViewCommand(ctx *commandContext) *cobra.Command {
	viewCmd := &cobra.Command{
		Use:   "view",
		Short: "Show server lists with queued changes merged in",
	}
	viewCmd.AddCommand(newViewWorkOrdersCommand(ctx))
	viewCmd.AddCommand(newViewNotesCommand(ctx))
	return viewCmd
}

func newViewWorkOrdersCommand(ctx *commandContext) *cobra.Command {
	var equipmentID string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "workorders",
		Short: "List work orders, including ones not yet synced",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(c context.Context, session queueaccess.Session) error {
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				client := backend.New(cfg, ctx.commandLogger(cfg))
				server, err := client.ListWorkOrders(c, cfg.Session.OrganizationID, equipmentID)
				if err := tolerateOffline(cmd.ErrOrStderr(), err); err != nil {
					return err
				}
				snapshot, err := session.Access.List(c)
				if err != nil {
					return err
				}
				lookup := buildLookup(c, cfg, client)
				merged := merge.WorkOrders(server, snapshot, merge.WorkOrderFilter{
					OrganizationID: cfg.Session.OrganizationID,
					EquipmentID:    equipmentID,
				}, lookup)
				if asJSON {
					return writeJSONList(cmd, merged)
				}
				renderWorkOrders(cmd.OutOrStdout(), merged)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&equipmentID, "equipment", "e", "", "Only work orders for this equipment id")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print work orders as JSON")
	return cmd
}

func newViewNotesCommand(ctx *commandContext) *cobra.Command {
	var workOrderID, equipmentID string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "notes",
		Short: "List notes for a work order or a piece of equipment",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (workOrderID == "") == (equipmentID == "") {
				return errors.New("specify exactly one of --work-order or --equipment")
			}
			return ctx.withSession(cmd, func(c context.Context, session queueaccess.Session) error {
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				client := backend.New(cfg, ctx.commandLogger(cfg))
				var server []domain.Note
				if workOrderID != "" {
					server, err = client.ListWorkOrderNotes(c, workOrderID)
				} else {
					server, err = client.ListEquipmentNotes(c, equipmentID)
				}
				if err := tolerateOffline(cmd.ErrOrStderr(), err); err != nil {
					return err
				}
				snapshot, err := session.Access.List(c)
				if err != nil {
					return err
				}
				lookup := buildLookup(c, cfg, client)
				var merged []merge.Merged[domain.Note]
				if workOrderID != "" {
					merged = merge.WorkOrderNotes(server, snapshot, workOrderID, lookup)
				} else {
					merged = merge.EquipmentNotes(server, snapshot, equipmentID, lookup)
				}
				if asJSON {
					return writeJSONList(cmd, merged)
				}
				renderNotes(cmd.OutOrStdout(), merged)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&workOrderID, "work-order", "w", "", "Work order id")
	cmd.Flags().StringVarP(&equipmentID, "equipment", "e", "", "Equipment id")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print notes as JSON")
	return cmd
}

// tolerateOffline turns an unreachable backend into a warning so the view
// still shows queued changes.
func tolerateOffline(stderr io.Writer, err error) error {
	if err == nil {
		return nil
	}
	if backend.IsNetworkError(err) {
		fmt.Fprintln(stderr, "Warning: backend unreachable; showing queued changes only")
		return nil
	}
	return fmt.Errorf("fetch from backend: %w", err)
}

// buildLookup seeds a cache with the session user and, when the backend
// answers, the organization's equipment names.
func buildLookup(ctx context.Context, cfg *config.Config, client *backend.Client) *cache.Cache {
	lookup := cache.New()
	if cfg.Session.UserName != "" {
		lookup.RememberUser(cfg.Session.UserID, cfg.Session.UserName)
	}
	if equipment, err := client.ListEquipment(ctx, cfg.Session.OrganizationID); err == nil {
		lookup.RememberEquipment(equipment)
	}
	return lookup
}

func renderWorkOrders(out io.Writer, list []merge.Merged[domain.WorkOrder]) {
	if len(list) == 0 {
		fmt.Fprintln(out, "No work orders")
		return
	}
	rows := make([][]string, 0, len(list))
	for _, wo := range list {
		rows = append(rows, []string{
			wo.Entity.ID,
			truncate(wo.Entity.Title, maxErrorWidth),
			firstNonEmpty(wo.Entity.EquipmentName, wo.Entity.EquipmentID),
			wo.Entity.Status,
			wo.Entity.Priority,
			syncMarker(wo.PendingSync),
		})
	}
	fmt.Fprint(out, renderTable(out,
		[]string{"ID", "Title", "Equipment", "Status", "Priority", "Sync"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
	))
	if pending := merge.Pending(list); pending > 0 {
		fmt.Fprintf(out, "%s waiting to sync\n", pluralItems(pending))
	}
}

func renderNotes(out io.Writer, list []merge.Merged[domain.Note]) {
	if len(list) == 0 {
		fmt.Fprintln(out, "No notes")
		return
	}
	rows := make([][]string, 0, len(list))
	for _, note := range list {
		hours := "-"
		if note.Entity.HoursWorked > 0 {
			hours = strconv.FormatFloat(note.Entity.HoursWorked, 'f', -1, 64)
		}
		rows = append(rows, []string{
			formatTimestamp(note.Entity.CreatedAt),
			firstNonEmpty(note.Entity.AuthorName, note.Entity.AuthorID),
			truncate(note.Entity.Content, maxErrorWidth),
			hours,
			syncMarker(note.PendingSync),
		})
	}
	fmt.Fprint(out, renderTable(out,
		[]string{"Created", "Author", "Content", "Hours", "Sync"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	))
	if pending := merge.Pending(list); pending > 0 {
		fmt.Fprintf(out, "%s waiting to sync\n", pluralItems(pending))
	}
}

func syncMarker(pending bool) string {
	if pending {
		return pendingMarker
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return "-"
}
