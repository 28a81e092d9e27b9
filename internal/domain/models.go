package domain

import (
	"encoding/json"
	"time"
)

// Work order statuses accepted by the backend.
const (
	WorkOrderSubmitted  = "submitted"
	WorkOrderAccepted   = "accepted"
	WorkOrderAssigned   = "assigned"
	WorkOrderInProgress = "in_progress"
	WorkOrderOnHold     = "on_hold"
	WorkOrderCompleted  = "completed"
	WorkOrderCancelled  = "cancelled"
)

// WorkOrder is a maintenance job raised against a piece of equipment.
type WorkOrder struct {
	ID             string     `json:"id"`
	OrganizationID string     `json:"organization_id"`
	EquipmentID    string     `json:"equipment_id"`
	EquipmentName  string     `json:"equipment_name,omitempty"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	Status         string     `json:"status"`
	Priority       string     `json:"priority"`
	AssigneeID     string     `json:"assignee_id,omitempty"`
	AssigneeName   string     `json:"assignee_name,omitempty"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	CreatedBy      string     `json:"created_by,omitempty"`
	CreatedByName  string     `json:"created_by_name,omitempty"`
	CreatedAt      time.Time  `json:"created_date"`
	UpdatedAt      time.Time  `json:"updated_at,omitempty"`
}

// Note is a comment attached to a work order or a piece of equipment.
type Note struct {
	ID          string    `json:"id"`
	WorkOrderID string    `json:"work_order_id,omitempty"`
	EquipmentID string    `json:"equipment_id,omitempty"`
	Content     string    `json:"content"`
	AuthorID    string    `json:"author_id"`
	AuthorName  string    `json:"author_name,omitempty"`
	HoursWorked float64   `json:"hours_worked,omitempty"`
	IsPrivate   bool      `json:"is_private"`
	CreatedAt   time.Time `json:"created_at"`
}

// Equipment is a tracked asset.
type Equipment struct {
	ID              string     `json:"id"`
	OrganizationID  string     `json:"organization_id"`
	Name            string     `json:"name"`
	Manufacturer    string     `json:"manufacturer,omitempty"`
	Model           string     `json:"model,omitempty"`
	SerialNumber    string     `json:"serial_number,omitempty"`
	Status          string     `json:"status"`
	Location        string     `json:"location,omitempty"`
	WorkingHours    float64    `json:"working_hours,omitempty"`
	LastMaintenance *time.Time `json:"last_maintenance,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	UpdatedAt       time.Time  `json:"updated_at,omitempty"`
}

// PreventativeMaintenance is the checklist attached to a work order.
type PreventativeMaintenance struct {
	ID            string          `json:"id"`
	WorkOrderID   string          `json:"work_order_id"`
	Status        string          `json:"status"`
	ChecklistData json.RawMessage `json:"checklist_data,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
}
