package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"equipqr/internal/domain"
)

func (c *Client) list(ctx context.Context, table string, filters url.Values, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, tablePath(table, filters), nil)
	if err != nil {
		return err
	}
	if _, err := c.do(req, out); err != nil {
		return fmt.Errorf("fetch %s: %w", table, err)
	}
	return nil
}

// ListWorkOrders fetches an organization's work orders, newest first. A
// non-empty equipmentID narrows the list to one asset.
func (c *Client) ListWorkOrders(ctx context.Context, organizationID, equipmentID string) ([]domain.WorkOrder, error) {
	filters := url.Values{
		"organization_id": []string{eq(organizationID)},
		"order":           []string{"created_date.desc"},
	}
	if equipmentID != "" {
		filters.Set("equipment_id", eq(equipmentID))
	}
	var out []domain.WorkOrder
	if err := c.list(ctx, domain.TableWorkOrders, filters, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListWorkOrderNotes fetches the notes attached to a work order, newest first.
func (c *Client) ListWorkOrderNotes(ctx context.Context, workOrderID string) ([]domain.Note, error) {
	filters := url.Values{
		"work_order_id": []string{eq(workOrderID)},
		"order":         []string{"created_at.desc"},
	}
	var out []domain.Note
	if err := c.list(ctx, domain.TableWorkOrderNotes, filters, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListEquipmentNotes fetches the notes attached to a piece of equipment, newest first.
func (c *Client) ListEquipmentNotes(ctx context.Context, equipmentID string) ([]domain.Note, error) {
	filters := url.Values{
		"equipment_id": []string{eq(equipmentID)},
		"order":        []string{"created_at.desc"},
	}
	var out []domain.Note
	if err := c.list(ctx, domain.TableEquipmentNotes, filters, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListEquipment fetches an organization's equipment ordered by name.
func (c *Client) ListEquipment(ctx context.Context, organizationID string) ([]domain.Equipment, error) {
	filters := url.Values{
		"organization_id": []string{eq(organizationID)},
		"order":           []string{"name.asc"},
	}
	var out []domain.Equipment
	if err := c.list(ctx, domain.TableEquipment, filters, &out); err != nil {
		return nil, err
	}
	return out, nil
}
