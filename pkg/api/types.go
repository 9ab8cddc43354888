package api

import "time"

// Caller identifies the user on whose behalf an inventory operation runs.
// It is derived from the request credential and never persisted.
type Caller struct {
	UserID string
}

// Item is a single inventory record.
type Item struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Quantity    int       `json:"quantity"`
	Price       float64   `json:"price"`
	Category    string    `json:"category"`
	OwnerID     string    `json:"ownerId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	// Seq is the store-assigned insertion sequence. It orders items whose
	// CreatedAt timestamps collide and is not part of the wire format.
	Seq int64 `json:"-"`
}

// OwnedBy reports whether the item belongs to the given caller.
func (it *Item) OwnedBy(c Caller) bool {
	return it != nil && c.UserID != "" && it.OwnerID == c.UserID
}

// Clone returns a copy of the item that shares no state with the original.
func (it *Item) Clone() *Item {
	if it == nil {
		return nil
	}
	cp := *it
	return &cp
}

// ItemDraft is the request body for creating an item. Numeric fields are
// pointers so an omitted quantity or price can be told apart from zero.
// Any ownerId supplied by the client is dropped during decoding.
type ItemDraft struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Quantity    *int     `json:"quantity"`
	Price       *float64 `json:"price"`
	Category    string   `json:"category"`
}

// ItemPatch is the request body for updating an item. Nil fields are left
// unchanged. ID, owner, and timestamps are not settable.
type ItemPatch struct {
	Name        *string  `json:"name,omitempty"`
	Description *string  `json:"description,omitempty"`
	Quantity    *int     `json:"quantity,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Category    *string  `json:"category,omitempty"`
}

// Apply writes the patch fields onto item.
func (p ItemPatch) Apply(item *Item) {
	if p.Name != nil {
		item.Name = *p.Name
	}
	if p.Description != nil {
		item.Description = *p.Description
	}
	if p.Quantity != nil {
		item.Quantity = *p.Quantity
	}
	if p.Price != nil {
		item.Price = *p.Price
	}
	if p.Category != nil {
		item.Category = *p.Category
	}
}

// DeleteResult acknowledges a permanent deletion.
type DeleteResult struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// Stats summarizes a caller's inventory for the dashboard.
type Stats struct {
	TotalProducts   int     `json:"totalProducts"`
	TotalCategories int     `json:"totalCategories"`
	LowStock        int     `json:"lowStock"`
	TotalValue      float64 `json:"totalValue"`
}
