package domain

import "time"

// UnlimitedStock marks an item that never runs out.
const UnlimitedStock = -1

type Item struct {
	ID          int64
	Name        string
	Description string
	Cost        int64
	Stock       int
	IsActive    bool
	CreatedAt   time.Time
}

func (i *Item) Unlimited() bool {
	return i.Stock == UnlimitedStock
}

func (i *Item) InStock() bool {
	return i.Stock != 0
}

// Validate checks the fields an administrator may set.
func (i *Item) Validate() error {
	if i.Name == "" {
		return NewError(KindInvalidInput, "invalid_item", "item name is required")
	}
	if i.Cost <= 0 {
		return NewError(KindInvalidInput, "invalid_item", "item cost must be positive")
	}
	if i.Stock < UnlimitedStock {
		return NewError(KindInvalidInput, "invalid_item", "item stock must be -1 or greater")
	}
	return nil
}

// ItemPatch carries the fields an administrator sent; nil fields keep their
// stored value.
type ItemPatch struct {
	Name        *string
	Description *string
	Cost        *int64
	Stock       *int
	IsActive    *bool
}

func (p ItemPatch) Apply(it *Item) {
	if p.Name != nil {
		it.Name = *p.Name
	}
	if p.Description != nil {
		it.Description = *p.Description
	}
	if p.Cost != nil {
		it.Cost = *p.Cost
	}
	if p.Stock != nil {
		it.Stock = *p.Stock
	}
	if p.IsActive != nil {
		it.IsActive = *p.IsActive
	}
}
