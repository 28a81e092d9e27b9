package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"equipqr/internal/domain"
	"equipqr/internal/offline"
	"equipqr/internal/queue"
	"equipqr/internal/queueaccess"
)

const dueDateLayout = "2006-01-02"

func newWorkOrderCommand(ctx *commandContext) *cobra.Command {
	workOrderCmd := &cobra.Command{
		Use:     "workorder",
		Aliases: []string{"wo"},
		Short:   "Queue work order changes",
	}
	workOrderCmd.AddCommand(newWorkOrderCreateCommand(ctx))
	workOrderCmd.AddCommand(newWorkOrderUpdateCommand(ctx))
	return workOrderCmd
}

func newWorkOrderCreateCommand(ctx *commandContext) *cobra.Command {
	var (
		payload domain.WorkOrderCreate
		due     string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Queue a new work order",
		RunE: func(cmd *cobra.Command, args []string) error {
			dueDate, err := parseDueDate(due)
			if err != nil {
				return err
			}
			payload.DueDate = dueDate
			return ctx.enqueue(cmd, queue.TypeWorkOrderCreate, payload)
		},
	}

	cmd.Flags().StringVar(&payload.EquipmentID, "equipment", "", "Equipment id the work order is for")
	cmd.Flags().StringVar(&payload.EquipmentName, "equipment-name", "", "Equipment name to show until the work order syncs")
	cmd.Flags().StringVarP(&payload.Title, "title", "t", "", "Work order title")
	cmd.Flags().StringVarP(&payload.Description, "description", "d", "", "Work order description")
	cmd.Flags().StringVarP(&payload.Priority, "priority", "p", "", "Priority: low, medium, or high (default medium)")
	cmd.Flags().StringVar(&payload.AssigneeID, "assignee", "", "Assignee user id")
	cmd.Flags().StringVar(&due, "due", "", "Due date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("equipment")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newWorkOrderUpdateCommand(ctx *commandContext) *cobra.Command {
	var title, description, status, priority, assignee, due string

	cmd := &cobra.Command{
		Use:   "update <work-order-id>",
		Short: "Queue changes to an existing work order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := domain.WorkOrderUpdate{WorkOrderID: args[0]}
			flags := cmd.Flags()
			if flags.Changed("title") {
				payload.Title = &title
			}
			if flags.Changed("description") {
				payload.Description = &description
			}
			if flags.Changed("status") {
				payload.Status = &status
			}
			if flags.Changed("priority") {
				payload.Priority = &priority
			}
			if flags.Changed("assignee") {
				payload.AssigneeID = &assignee
			}
			if flags.Changed("due") {
				dueDate, err := parseDueDate(due)
				if err != nil {
					return err
				}
				payload.DueDate = dueDate
			}
			if payload.Title == nil && payload.Description == nil && payload.Status == nil &&
				payload.Priority == nil && payload.AssigneeID == nil && payload.DueDate == nil {
				return errors.New("nothing to update: set at least one of --title, --description, --status, --priority, --assignee, --due")
			}
			return ctx.enqueue(cmd, queue.TypeWorkOrderUpdate, payload)
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "New title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "New description")
	cmd.Flags().StringVarP(&status, "status", "s", "", "New status (submitted, accepted, assigned, in_progress, on_hold, completed, cancelled)")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "New priority: low, medium, or high")
	cmd.Flags().StringVar(&assignee, "assignee", "", "New assignee user id")
	cmd.Flags().StringVar(&due, "due", "", "New due date (YYYY-MM-DD)")
	return cmd
}

func newNoteCommand(ctx *commandContext) *cobra.Command {
	noteCmd := &cobra.Command{
		Use:   "note",
		Short: "Queue notes on work orders and equipment",
	}
	noteCmd.AddCommand(newNoteAddCommand(ctx))
	return noteCmd
}

func newNoteAddCommand(ctx *commandContext) *cobra.Command {
	var (
		workOrderID string
		equipmentID string
		content     string
		hours       float64
		private     bool
	)

	cmd := &cobra.Command{
		Use:   "add [content]",
		Short: "Queue a note for a work order (--work-order) or a piece of equipment (--equipment)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				content = args[0]
			}
			if (workOrderID == "") == (equipmentID == "") {
				return errors.New("specify exactly one of --work-order or --equipment")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			author := cfg.Session.UserName
			if workOrderID != "" {
				return ctx.enqueue(cmd, queue.TypeWorkOrderNote, domain.WorkOrderNote{
					WorkOrderID: workOrderID,
					Content:     content,
					HoursWorked: hours,
					IsPrivate:   private,
					AuthorName:  author,
				})
			}
			return ctx.enqueue(cmd, queue.TypeEquipmentNote, domain.EquipmentNote{
				EquipmentID: equipmentID,
				Content:     content,
				HoursWorked: hours,
				IsPrivate:   private,
				AuthorName:  author,
			})
		},
	}

	cmd.Flags().StringVarP(&workOrderID, "work-order", "w", "", "Work order id")
	cmd.Flags().StringVarP(&equipmentID, "equipment", "e", "", "Equipment id")
	cmd.Flags().StringVarP(&content, "message", "m", "", "Note text")
	cmd.Flags().Float64Var(&hours, "hours", 0, "Hours worked")
	cmd.Flags().BoolVar(&private, "private", false, "Hide the note from other organization members")
	return cmd
}

// enqueue queues payload through the daemon or the local store and reports
// the new item.
func (c *commandContext) enqueue(cmd *cobra.Command, itemType queue.ItemType, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	return c.withSession(cmd, func(ctx context.Context, session queueaccess.Session) error {
		item, err := session.Access.Enqueue(ctx, offline.EnqueueRequest{Type: itemType, Payload: raw})
		if err != nil {
			return describeEnqueueError(err)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Queued %s %s\n", item.Type, item.ID)
		if status, err := session.Access.Status(ctx); err == nil && status.Banner.Message != "" {
			fmt.Fprintf(out, "Queue: %s\n", status.Banner.Message)
		}
		return nil
	})
}

func describeEnqueueError(err error) error {
	switch {
	case errors.Is(err, queue.ErrPayloadTooLarge):
		return fmt.Errorf("change is too large to queue offline: %w", err)
	case errors.Is(err, queue.ErrQueueFull):
		return fmt.Errorf("offline queue is full; sync or clear failed items first: %w", err)
	case errors.Is(err, queue.ErrInvalidPayload):
		return fmt.Errorf("invalid change: %w", err)
	default:
		return err
	}
}

func parseDueDate(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	parsed, err := time.ParseInLocation(dueDateLayout, value, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid --due %q: use YYYY-MM-DD", value)
	}
	return &parsed, nil
}
