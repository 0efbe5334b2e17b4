package cart

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/dukerupert/resell/internal/domain"
	"github.com/shopspring/decimal"
)

// snapshotItem is the persisted shape of a line item. Price is written as a
// JSON number; quoted numbers are accepted on read.
type snapshotItem struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Price    json.Number `json:"price"`
	Quantity int         `json:"quantity"`
	Image    string      `json:"image,omitempty"`
	Kind     string      `json:"kind"`
	PlanID   string      `json:"planId,omitempty"`
	PlanName string      `json:"planName,omitempty"`
}

// encodeSnapshot renders items as the JSON array stored under the cart key.
// An empty cart encodes as [] rather than null.
func encodeSnapshot(items []domain.LineItem) ([]byte, error) {
	out := make([]snapshotItem, 0, len(items))
	for _, item := range items {
		out = append(out, snapshotItem{
			ID:       item.ID,
			Name:     item.Name,
			Price:    json.Number(item.Price.String()),
			Quantity: item.Quantity,
			Image:    item.Image,
			Kind:     string(item.Kind),
			PlanID:   item.PlanID,
			PlanName: item.PlanName,
		})
	}
	return json.Marshal(out)
}

// decodeSnapshot parses a persisted cart. Absent data and JSON null decode to
// an empty cart. Any entry that breaks a line item invariant makes the whole
// snapshot malformed.
func decodeSnapshot(data []byte) ([]domain.LineItem, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	var raw []snapshotItem
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse cart snapshot: %w", err)
	}

	items := make([]domain.LineItem, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for i, r := range raw {
		if r.ID == "" {
			return nil, fmt.Errorf("snapshot item %d: missing id", i)
		}
		if _, dup := seen[r.ID]; dup {
			return nil, fmt.Errorf("snapshot item %d: duplicate id %q", i, r.ID)
		}
		seen[r.ID] = struct{}{}

		if r.Quantity < 1 {
			return nil, fmt.Errorf("snapshot item %q: quantity %d", r.ID, r.Quantity)
		}

		price, err := decimal.NewFromString(r.Price.String())
		if err != nil {
			return nil, fmt.Errorf("snapshot item %q: price: %w", r.ID, err)
		}
		if price.IsNegative() {
			return nil, fmt.Errorf("snapshot item %q: negative price", r.ID)
		}

		kind := domain.ItemKind(r.Kind)
		if kind == "" {
			kind = domain.ItemKindProduct
		}
		if !kind.Valid() {
			return nil, fmt.Errorf("snapshot item %q: unknown kind %q", r.ID, r.Kind)
		}

		items = append(items, domain.LineItem{
			ID:       r.ID,
			Name:     r.Name,
			Price:    price,
			Quantity: r.Quantity,
			Image:    r.Image,
			Kind:     kind,
			PlanID:   r.PlanID,
			PlanName: r.PlanName,
		})
	}

	return items, nil
}
