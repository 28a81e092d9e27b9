package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"equipqr/internal/queue"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Decode unmarshals an item payload into its typed form.
func Decode[T any](item *queue.Item) (T, error) {
	var out T
	if item == nil {
		return out, fmt.Errorf("%w: item is nil", queue.ErrInvalidPayload)
	}
	if err := json.Unmarshal(item.Payload, &out); err != nil {
		return out, fmt.Errorf("%w: decode %s payload: %v", queue.ErrInvalidPayload, item.Type, err)
	}
	return out, nil
}

// Prepare normalizes and validates a raw payload for a new queue item.
// Create and note payloads without an id adopt itemID so the server row and
// the local shadow share one identifier.
func Prepare(itemID string, itemType queue.ItemType, raw []byte) (json.RawMessage, error) {
	switch itemType {
	case queue.TypeWorkOrderCreate:
		return prepare(raw, func(p *WorkOrderCreate) {
			p.ID = defaultID(p.ID, itemID)
			p.Title = strings.TrimSpace(p.Title)
			if p.Priority == "" {
				p.Priority = "medium"
			}
		})
	case queue.TypeWorkOrderUpdate:
		return prepare(raw, func(*WorkOrderUpdate) {})
	case queue.TypeWorkOrderNote:
		return prepare(raw, func(p *WorkOrderNote) {
			p.ID = defaultID(p.ID, itemID)
			p.Content = strings.TrimSpace(p.Content)
		})
	case queue.TypeEquipmentNote:
		return prepare(raw, func(p *EquipmentNote) {
			p.ID = defaultID(p.ID, itemID)
			p.Content = strings.TrimSpace(p.Content)
		})
	case queue.TypeEquipmentUpdate:
		return prepare(raw, func(*EquipmentUpdate) {})
	case queue.TypePMUpdate:
		return prepare(raw, func(*PMUpdate) {})
	default:
		return nil, fmt.Errorf("%w: unknown item type %q", queue.ErrInvalidPayload, itemType)
	}
}

func prepare[T any](raw []byte, normalize func(*T)) (json.RawMessage, error) {
	var payload T
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", queue.ErrInvalidPayload, err)
	}
	normalize(&payload)
	if err := validate.Struct(&payload); err != nil {
		return nil, fmt.Errorf("%w: %s", queue.ErrInvalidPayload, describeValidation(err))
	}
	out, err := json.Marshal(&payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return out, nil
}

func defaultID(current, fallback string) string {
	if strings.TrimSpace(current) != "" {
		return current
	}
	return fallback
}

func describeValidation(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
