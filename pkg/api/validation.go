package api

import "strings"

// ValidateDraft normalizes a create payload in place (surrounding whitespace
// is trimmed from text fields) and checks that every required field is
// present. It returns an *APIError describing the first missing field, or
// nil if the draft is complete.
//
// Range checks (non-negative quantity and price) belong to the store.
func ValidateDraft(d *ItemDraft) *APIError {
	d.Name = strings.TrimSpace(d.Name)
	d.Description = strings.TrimSpace(d.Description)
	d.Category = strings.TrimSpace(d.Category)

	switch {
	case d.Name == "":
		return NewInvalidRequestError("name", "Please provide all required fields")
	case d.Description == "":
		return NewInvalidRequestError("description", "Please provide all required fields")
	case d.Quantity == nil:
		return NewInvalidRequestError("quantity", "Please provide all required fields")
	case d.Price == nil:
		return NewInvalidRequestError("price", "Please provide all required fields")
	case d.Category == "":
		return NewInvalidRequestError("category", "Please provide all required fields")
	}
	return nil
}

// ValidatePatch normalizes an update payload in place and rejects text
// fields that are present but blank.
func ValidatePatch(p *ItemPatch) *APIError {
	fields := []struct {
		param string
		value *string
	}{
		{"name", p.Name},
		{"description", p.Description},
		{"category", p.Category},
	}
	for _, f := range fields {
		if f.value == nil {
			continue
		}
		*f.value = strings.TrimSpace(*f.value)
		if *f.value == "" {
			return NewInvalidRequestError(f.param, f.param+" cannot be empty")
		}
	}
	return nil
}

// NewItem builds an unsaved item from a validated draft, owned by caller.
func NewItem(d *ItemDraft, c Caller) *Item {
	return &Item{
		Name:        d.Name,
		Description: d.Description,
		Quantity:    *d.Quantity,
		Price:       *d.Price,
		Category:    d.Category,
		OwnerID:     c.UserID,
	}
}
