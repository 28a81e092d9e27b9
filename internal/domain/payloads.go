package domain

import (
	"encoding/json"
	"time"
)

// WorkOrderCreate is the payload of a work_order_create item. ID is the
// client-generated row id; it defaults to the queue item id.
type WorkOrderCreate struct {
	ID            string     `json:"id" validate:"required"`
	EquipmentID   string     `json:"equipmentId" validate:"required"`
	EquipmentName string     `json:"equipmentName,omitempty"`
	Title         string     `json:"title" validate:"required,max=200"`
	Description   string     `json:"description,omitempty" validate:"max=5000"`
	Priority      string     `json:"priority" validate:"omitempty,oneof=low medium high"`
	AssigneeID    string     `json:"assigneeId,omitempty"`
	DueDate       *time.Time `json:"dueDate,omitempty"`
}

// WorkOrderUpdate is the payload of a work_order_update item. Nil fields are left unchanged.
type WorkOrderUpdate struct {
	WorkOrderID string     `json:"workOrderId" validate:"required"`
	Title       *string    `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string    `json:"description,omitempty" validate:"omitempty,max=5000"`
	Status      *string    `json:"status,omitempty" validate:"omitempty,oneof=submitted accepted assigned in_progress on_hold completed cancelled"`
	Priority    *string    `json:"priority,omitempty" validate:"omitempty,oneof=low medium high"`
	AssigneeID  *string    `json:"assigneeId,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
}

// WorkOrderNote is the payload of a work_order_note item.
type WorkOrderNote struct {
	ID          string  `json:"id" validate:"required"`
	WorkOrderID string  `json:"workOrderId" validate:"required"`
	Content     string  `json:"content" validate:"required,max=10000"`
	HoursWorked float64 `json:"hoursWorked,omitempty" validate:"gte=0,lte=24"`
	IsPrivate   bool    `json:"isPrivate,omitempty"`
	AuthorName  string  `json:"authorName,omitempty"`
}

// EquipmentNote is the payload of an equipment_note item.
type EquipmentNote struct {
	ID          string  `json:"id" validate:"required"`
	EquipmentID string  `json:"equipmentId" validate:"required"`
	Content     string  `json:"content" validate:"required,max=10000"`
	HoursWorked float64 `json:"hoursWorked,omitempty" validate:"gte=0,lte=24"`
	IsPrivate   bool    `json:"isPrivate,omitempty"`
	AuthorName  string  `json:"authorName,omitempty"`
}

// EquipmentUpdate is the payload of an equipment_update item.
type EquipmentUpdate struct {
	EquipmentID     string     `json:"equipmentId" validate:"required"`
	Status          *string    `json:"status,omitempty" validate:"omitempty,oneof=active maintenance inactive"`
	Location        *string    `json:"location,omitempty" validate:"omitempty,max=500"`
	WorkingHours    *float64   `json:"workingHours,omitempty" validate:"omitempty,gte=0"`
	LastMaintenance *time.Time `json:"lastMaintenance,omitempty"`
	Notes           *string    `json:"notes,omitempty" validate:"omitempty,max=10000"`
}

// PMUpdate is the payload of a pm_update item.
type PMUpdate struct {
	PMID          string          `json:"pmId" validate:"required"`
	WorkOrderID   string          `json:"workOrderId" validate:"required"`
	Status        *string         `json:"status,omitempty" validate:"omitempty,oneof=pending in_progress completed cancelled"`
	ChecklistData json.RawMessage `json:"checklistData,omitempty"`
	Notes         *string         `json:"notes,omitempty" validate:"omitempty,max=10000"`
}
