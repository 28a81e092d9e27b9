package domain

import "equipqr/internal/queue"

// Cache key builders. Keys share a prefix per entity kind so whole families
// can be marked stale at once.

func WorkOrdersKey(organizationID string) string { return "work_orders:" + organizationID }

func WorkOrderKey(id string) string { return "work_order:" + id }

func WorkOrderNotesKey(workOrderID string) string { return "work_order_notes:" + workOrderID }

func EquipmentNotesKey(equipmentID string) string { return "equipment_notes:" + equipmentID }

func EquipmentListKey(organizationID string) string { return "equipment:" + organizationID }

func EquipmentKey(id string) string { return "equipment_item:" + id }

func PMKey(workOrderID string) string { return "pm:" + workOrderID }

// CacheKeys lists the cache entries a successful sync of item makes stale.
// Undecodable payloads fall back to the organization-wide lists.
func CacheKeys(item *queue.Item) []string {
	org := item.OrganizationID
	switch item.Type {
	case queue.TypeWorkOrderCreate:
		keys := []string{WorkOrdersKey(org)}
		if p, err := Decode[WorkOrderCreate](item); err == nil {
			keys = append(keys, WorkOrderKey(p.ID), EquipmentKey(p.EquipmentID))
		}
		return keys
	case queue.TypeWorkOrderUpdate:
		keys := []string{WorkOrdersKey(org)}
		if p, err := Decode[WorkOrderUpdate](item); err == nil {
			keys = append(keys, WorkOrderKey(p.WorkOrderID))
		}
		return keys
	case queue.TypeWorkOrderNote:
		if p, err := Decode[WorkOrderNote](item); err == nil {
			return []string{WorkOrderNotesKey(p.WorkOrderID), WorkOrderKey(p.WorkOrderID)}
		}
		return []string{WorkOrdersKey(org)}
	case queue.TypeEquipmentNote:
		if p, err := Decode[EquipmentNote](item); err == nil {
			return []string{EquipmentNotesKey(p.EquipmentID), EquipmentKey(p.EquipmentID)}
		}
		return []string{EquipmentListKey(org)}
	case queue.TypeEquipmentUpdate:
		keys := []string{EquipmentListKey(org)}
		if p, err := Decode[EquipmentUpdate](item); err == nil {
			keys = append(keys, EquipmentKey(p.EquipmentID))
		}
		return keys
	case queue.TypePMUpdate:
		keys := []string{WorkOrdersKey(org)}
		if p, err := Decode[PMUpdate](item); err == nil {
			keys = append(keys, PMKey(p.WorkOrderID), WorkOrderKey(p.WorkOrderID))
		}
		return keys
	default:
		return nil
	}
}
