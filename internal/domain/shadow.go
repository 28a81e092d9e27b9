package domain

import "equipqr/internal/queue"

// Shadow synthesizes the work order a pending create will produce.
func (p WorkOrderCreate) Shadow(item *queue.Item) WorkOrder {
	status := WorkOrderSubmitted
	if p.AssigneeID != "" {
		status = WorkOrderAssigned
	}
	return WorkOrder{
		ID:             p.ID,
		OrganizationID: item.OrganizationID,
		EquipmentID:    p.EquipmentID,
		EquipmentName:  p.EquipmentName,
		Title:          p.Title,
		Description:    p.Description,
		Status:         status,
		Priority:       p.Priority,
		AssigneeID:     p.AssigneeID,
		DueDate:        p.DueDate,
		CreatedBy:      item.UserID,
		CreatedAt:      item.Timestamp,
		UpdatedAt:      item.Timestamp,
	}
}

// Apply overlays the pending update onto wo.
func (p WorkOrderUpdate) Apply(wo *WorkOrder) {
	if p.Title != nil {
		wo.Title = *p.Title
	}
	if p.Description != nil {
		wo.Description = *p.Description
	}
	if p.Status != nil {
		wo.Status = *p.Status
	}
	if p.Priority != nil {
		wo.Priority = *p.Priority
	}
	if p.AssigneeID != nil {
		wo.AssigneeID = *p.AssigneeID
	}
	if p.DueDate != nil {
		due := *p.DueDate
		wo.DueDate = &due
	}
}

// Shadow synthesizes the note a pending work order note will produce.
func (p WorkOrderNote) Shadow(item *queue.Item) Note {
	return Note{
		ID:          p.ID,
		WorkOrderID: p.WorkOrderID,
		Content:     p.Content,
		AuthorID:    item.UserID,
		AuthorName:  p.AuthorName,
		HoursWorked: p.HoursWorked,
		IsPrivate:   p.IsPrivate,
		CreatedAt:   item.Timestamp,
	}
}

// Shadow synthesizes the note a pending equipment note will produce.
func (p EquipmentNote) Shadow(item *queue.Item) Note {
	return Note{
		ID:          p.ID,
		EquipmentID: p.EquipmentID,
		Content:     p.Content,
		AuthorID:    item.UserID,
		AuthorName:  p.AuthorName,
		HoursWorked: p.HoursWorked,
		IsPrivate:   p.IsPrivate,
		CreatedAt:   item.Timestamp,
	}
}
