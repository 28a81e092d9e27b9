package domain

import (
	"fmt"

	"equipqr/internal/queue"
)

// Backend tables written by queue items.
const (
	TableWorkOrders              = "work_orders"
	TableWorkOrderNotes          = "work_order_notes"
	TableEquipmentNotes          = "equipment_notes"
	TableEquipment               = "equipment"
	TablePreventativeMaintenance = "preventative_maintenance"
)

// Mutation is the backend write a queue item replays.
type Mutation struct {
	Table string
	// Create selects an insert; otherwise RowID identifies the row to patch.
	Create bool
	RowID  string
	Row    map[string]any
}

// BuildMutation translates a queue item into the row it writes.
func BuildMutation(item *queue.Item) (Mutation, error) {
	switch item.Type {
	case queue.TypeWorkOrderCreate:
		p, err := Decode[WorkOrderCreate](item)
		if err != nil {
			return Mutation{}, err
		}
		row := map[string]any{
			"id":              p.ID,
			"organization_id": item.OrganizationID,
			"equipment_id":    p.EquipmentID,
			"title":           p.Title,
			"description":     p.Description,
			"priority":        p.Priority,
			"status":          WorkOrderSubmitted,
			"created_by":      item.UserID,
			"created_date":    item.Timestamp.UTC(),
		}
		if p.AssigneeID != "" {
			row["assignee_id"] = p.AssigneeID
			row["status"] = WorkOrderAssigned
		}
		if p.DueDate != nil {
			row["due_date"] = p.DueDate.UTC()
		}
		return Mutation{Table: TableWorkOrders, Create: true, RowID: p.ID, Row: row}, nil

	case queue.TypeWorkOrderUpdate:
		p, err := Decode[WorkOrderUpdate](item)
		if err != nil {
			return Mutation{}, err
		}
		row := map[string]any{}
		setIf(row, "title", p.Title)
		setIf(row, "description", p.Description)
		setIf(row, "status", p.Status)
		setIf(row, "priority", p.Priority)
		setIf(row, "assignee_id", p.AssigneeID)
		if p.DueDate != nil {
			row["due_date"] = p.DueDate.UTC()
		}
		return Mutation{Table: TableWorkOrders, RowID: p.WorkOrderID, Row: row}, nil

	case queue.TypeWorkOrderNote:
		p, err := Decode[WorkOrderNote](item)
		if err != nil {
			return Mutation{}, err
		}
		return Mutation{Table: TableWorkOrderNotes, Create: true, RowID: p.ID, Row: map[string]any{
			"id":            p.ID,
			"work_order_id": p.WorkOrderID,
			"content":       p.Content,
			"author_id":     item.UserID,
			"hours_worked":  p.HoursWorked,
			"is_private":    p.IsPrivate,
			"created_at":    item.Timestamp.UTC(),
		}}, nil

	case queue.TypeEquipmentNote:
		p, err := Decode[EquipmentNote](item)
		if err != nil {
			return Mutation{}, err
		}
		return Mutation{Table: TableEquipmentNotes, Create: true, RowID: p.ID, Row: map[string]any{
			"id":           p.ID,
			"equipment_id": p.EquipmentID,
			"content":      p.Content,
			"author_id":    item.UserID,
			"hours_worked": p.HoursWorked,
			"is_private":   p.IsPrivate,
			"created_at":   item.Timestamp.UTC(),
		}}, nil

	case queue.TypeEquipmentUpdate:
		p, err := Decode[EquipmentUpdate](item)
		if err != nil {
			return Mutation{}, err
		}
		row := map[string]any{}
		setIf(row, "status", p.Status)
		setIf(row, "location", p.Location)
		setIf(row, "notes", p.Notes)
		if p.WorkingHours != nil {
			row["working_hours"] = *p.WorkingHours
		}
		if p.LastMaintenance != nil {
			row["last_maintenance"] = p.LastMaintenance.UTC()
		}
		return Mutation{Table: TableEquipment, RowID: p.EquipmentID, Row: row}, nil

	case queue.TypePMUpdate:
		p, err := Decode[PMUpdate](item)
		if err != nil {
			return Mutation{}, err
		}
		row := map[string]any{}
		setIf(row, "status", p.Status)
		setIf(row, "notes", p.Notes)
		if len(p.ChecklistData) > 0 {
			row["checklist_data"] = p.ChecklistData
		}
		if p.Status != nil && *p.Status == "completed" {
			row["completed_at"] = item.Timestamp.UTC()
		}
		return Mutation{Table: TablePreventativeMaintenance, RowID: p.PMID, Row: row}, nil

	default:
		return Mutation{}, fmt.Errorf("%w: unknown item type %q", queue.ErrInvalidPayload, item.Type)
	}
}

func setIf(row map[string]any, key string, value *string) {
	if value != nil {
		row[key] = *value
	}
}
