package merge

import (
	"equipqr/internal/domain"
	"equipqr/internal/queue"
)

// Lookup resolves display names from data that is already cached.
// Implementations must never fetch.
type Lookup interface {
	EquipmentName(id string) (string, bool)
	UserName(id string) (string, bool)
}

// WorkOrderFilter narrows the work order list. EquipmentID is optional.
type WorkOrderFilter struct {
	OrganizationID string
	EquipmentID    string
}

// WorkOrders merges pending work order creates and updates into server.
func WorkOrders(server []domain.WorkOrder, snapshot []*queue.Item, filter WorkOrderFilter, lookup Lookup) []Merged[domain.WorkOrder] {
	return Merge(server, snapshot, Source[domain.WorkOrder]{
		Types:    []queue.ItemType{queue.TypeWorkOrderCreate},
		Overlays: []queue.ItemType{queue.TypeWorkOrderUpdate},
		Match: func(item *queue.Item) bool {
			if filter.OrganizationID != "" && item.OrganizationID != filter.OrganizationID {
				return false
			}
			if item.Type != queue.TypeWorkOrderCreate || filter.EquipmentID == "" {
				return true
			}
			p, err := domain.Decode[domain.WorkOrderCreate](item)
			return err == nil && p.EquipmentID == filter.EquipmentID
		},
		Shadow: func(item *queue.Item) (domain.WorkOrder, error) {
			p, err := domain.Decode[domain.WorkOrderCreate](item)
			if err != nil {
				return domain.WorkOrder{}, err
			}
			return p.Shadow(item), nil
		},
		Overlay: func(item *queue.Item, wo *domain.WorkOrder) bool {
			p, err := domain.Decode[domain.WorkOrderUpdate](item)
			if err != nil || p.WorkOrderID != wo.ID {
				return false
			}
			p.Apply(wo)
			return true
		},
		ID: func(wo domain.WorkOrder) string { return wo.ID },
		Resolve: func(wo *domain.WorkOrder) {
			if lookup == nil {
				return
			}
			if wo.EquipmentName == "" {
				wo.EquipmentName, _ = lookup.EquipmentName(wo.EquipmentID)
			}
			if wo.AssigneeName == "" && wo.AssigneeID != "" {
				wo.AssigneeName, _ = lookup.UserName(wo.AssigneeID)
			}
			if wo.CreatedByName == "" && wo.CreatedBy != "" {
				wo.CreatedByName, _ = lookup.UserName(wo.CreatedBy)
			}
		},
	})
}

// WorkOrderNotes merges pending notes for exactly workOrderID into server.
func WorkOrderNotes(server []domain.Note, snapshot []*queue.Item, workOrderID string, lookup Lookup) []Merged[domain.Note] {
	return Merge(server, snapshot, Source[domain.Note]{
		Types: []queue.ItemType{queue.TypeWorkOrderNote},
		Match: func(item *queue.Item) bool {
			if item.Type != queue.TypeWorkOrderNote {
				return false
			}
			p, err := domain.Decode[domain.WorkOrderNote](item)
			return err == nil && p.WorkOrderID == workOrderID
		},
		Shadow: func(item *queue.Item) (domain.Note, error) {
			p, err := domain.Decode[domain.WorkOrderNote](item)
			if err != nil {
				return domain.Note{}, err
			}
			return p.Shadow(item), nil
		},
		ID:      noteID,
		Resolve: resolveAuthor(lookup),
	})
}

// EquipmentNotes merges pending notes for exactly equipmentID into server.
func EquipmentNotes(server []domain.Note, snapshot []*queue.Item, equipmentID string, lookup Lookup) []Merged[domain.Note] {
	return Merge(server, snapshot, Source[domain.Note]{
		Types: []queue.ItemType{queue.TypeEquipmentNote},
		Match: func(item *queue.Item) bool {
			if item.Type != queue.TypeEquipmentNote {
				return false
			}
			p, err := domain.Decode[domain.EquipmentNote](item)
			return err == nil && p.EquipmentID == equipmentID
		},
		Shadow: func(item *queue.Item) (domain.Note, error) {
			p, err := domain.Decode[domain.EquipmentNote](item)
			if err != nil {
				return domain.Note{}, err
			}
			return p.Shadow(item), nil
		},
		ID:      noteID,
		Resolve: resolveAuthor(lookup),
	})
}

func noteID(n domain.Note) string { return n.ID }

func resolveAuthor(lookup Lookup) func(*domain.Note) {
	return func(n *domain.Note) {
		if lookup == nil || n.AuthorName != "" {
			return
		}
		n.AuthorName, _ = lookup.UserName(n.AuthorID)
	}
}
