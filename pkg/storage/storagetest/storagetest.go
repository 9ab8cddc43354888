// Package storagetest provides a behavioral test suite that every
// storage.ItemStore implementation must pass.
package storagetest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rhuss/stockroom/pkg/api"
	"github.com/rhuss/stockroom/pkg/storage"
)

// Factory returns a fresh, empty store for a single subtest.
type Factory func(t *testing.T) storage.ItemStore

// Run executes the shared suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, s storage.ItemStore)
	}{
		{"CreateAndGet", testCreateAndGet},
		{"CreateIgnoresPresetFields", testCreateIgnoresPresetFields},
		{"GetNotFound", testGetNotFound},
		{"ListScopedAndOrdered", testListScopedAndOrdered},
		{"ListEmpty", testListEmpty},
		{"UpdateAppliesPatch", testUpdateAppliesPatch},
		{"UpdateEmptyPatchAdvancesTimestamp", testUpdateEmptyPatch},
		{"UpdateNotFound", testUpdateNotFound},
		{"CreateConstraint", testCreateConstraint},
		{"UpdateConstraint", testUpdateConstraint},
		{"Delete", testDelete},
		{"ConcurrentCreate", testConcurrentCreate},
		{"HealthCheck", testHealthCheck},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

// NewTestItem returns an unsaved item owned by ownerID.
func NewTestItem(ownerID, name string) *api.Item {
	return &api.Item{
		Name:        name,
		Description: name + " description",
		Quantity:    5,
		Price:       1299.99,
		Category:    "Electronics",
		OwnerID:     ownerID,
	}
}

func mustCreate(t *testing.T, s storage.ItemStore, item *api.Item) *api.Item {
	t.Helper()
	got, err := s.CreateItem(context.Background(), item)
	if err != nil {
		t.Fatalf("CreateItem failed: %v", err)
	}
	return got
}

func testCreateAndGet(t *testing.T, s storage.ItemStore) {
	ctx := context.Background()

	created := mustCreate(t, s, NewTestItem("u1", "Laptop"))

	if !api.ValidateItemID(created.ID) {
		t.Errorf("ID = %q, want valid item ID", created.ID)
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Errorf("timestamps not set: created=%v updated=%v", created.CreatedAt, created.UpdatedAt)
	}
	if !created.CreatedAt.Equal(created.UpdatedAt) {
		t.Errorf("CreatedAt %v != UpdatedAt %v on a new item", created.CreatedAt, created.UpdatedAt)
	}

	got, err := s.GetItem(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("ID = %q, want %q", got.ID, created.ID)
	}
	if got.Name != "Laptop" || got.Description != "Laptop description" || got.Category != "Electronics" {
		t.Errorf("text fields = %q/%q/%q", got.Name, got.Description, got.Category)
	}
	if got.Quantity != 5 || got.Price != 1299.99 {
		t.Errorf("Quantity/Price = %d/%v, want 5/1299.99", got.Quantity, got.Price)
	}
	if got.OwnerID != "u1" {
		t.Errorf("OwnerID = %q, want %q", got.OwnerID, "u1")
	}
	if !got.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, created.CreatedAt)
	}
}

func testCreateIgnoresPresetFields(t *testing.T, s storage.ItemStore) {
	item := NewTestItem("u1", "Chair")
	item.ID = "6f1c2b1e-8d4a-4c55-9b1a-2f0e4f1a9c3d"
	item.Seq = 99999

	created := mustCreate(t, s, item)
	if created.ID == "6f1c2b1e-8d4a-4c55-9b1a-2f0e4f1a9c3d" {
		t.Error("store must assign its own ID")
	}
}

func testGetNotFound(t *testing.T, s storage.ItemStore) {
	ctx := context.Background()

	for _, id := range []string{api.NewItemID(), "not-an-id", "", "507f1f77bcf86cd799439011"} {
		if _, err := s.GetItem(ctx, id); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("GetItem(%q) = %v, want ErrNotFound", id, err)
		}
	}
}

func testListScopedAndOrdered(t *testing.T, s storage.ItemStore) {
	ctx := context.Background()

	first := mustCreate(t, s, NewTestItem("u1", "first"))
	other := mustCreate(t, s, NewTestItem("u2", "other"))
	second := mustCreate(t, s, NewTestItem("u1", "second"))
	third := mustCreate(t, s, NewTestItem("u1", "third"))

	items, err := s.ListItems(ctx, "u1")
	if err != nil {
		t.Fatalf("ListItems failed: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("len(items) = %d, want 3", len(items))
	}

	want := []string{third.ID, second.ID, first.ID}
	for i, id := range want {
		if items[i].ID != id {
			t.Errorf("items[%d] = %q (%s), want %q", i, items[i].ID, items[i].Name, id)
		}
		if items[i].OwnerID != "u1" {
			t.Errorf("items[%d].OwnerID = %q, want u1", i, items[i].OwnerID)
		}
	}

	others, err := s.ListItems(ctx, "u2")
	if err != nil {
		t.Fatalf("ListItems(u2) failed: %v", err)
	}
	if len(others) != 1 || others[0].ID != other.ID {
		t.Errorf("ListItems(u2) = %v, want only %q", others, other.ID)
	}
}

func testListEmpty(t *testing.T, s storage.ItemStore) {
	items, err := s.ListItems(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("ListItems failed: %v", err)
	}
	if items == nil {
		t.Error("ListItems returned nil, want empty slice")
	}
	if len(items) != 0 {
		t.Errorf("len(items) = %d, want 0", len(items))
	}
}

func testUpdateAppliesPatch(t *testing.T, s storage.ItemStore) {
	ctx := context.Background()
	created := mustCreate(t, s, NewTestItem("u1", "Laptop"))

	name := "Laptop Pro"
	qty := 0
	price := 1499.5
	updated, err := s.UpdateItem(ctx, created.ID, api.ItemPatch{Name: &name, Quantity: &qty, Price: &price})
	if err != nil {
		t.Fatalf("UpdateItem failed: %v", err)
	}

	if updated.Name != name || updated.Quantity != 0 || updated.Price != price {
		t.Errorf("patch not applied: %+v", updated)
	}
	if updated.Description != created.Description || updated.Category != created.Category {
		t.Errorf("unpatched fields changed: %+v", updated)
	}
	if updated.ID != created.ID || updated.OwnerID != created.OwnerID {
		t.Errorf("identity fields changed: %+v", updated)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("CreatedAt changed: %v -> %v", created.CreatedAt, updated.CreatedAt)
	}
	if !updated.UpdatedAt.After(created.UpdatedAt) {
		t.Errorf("UpdatedAt did not advance: %v -> %v", created.UpdatedAt, updated.UpdatedAt)
	}

	got, err := s.GetItem(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if got.Name != name || !got.UpdatedAt.Equal(updated.UpdatedAt) {
		t.Errorf("GetItem after update = %+v", got)
	}
}

func testUpdateEmptyPatch(t *testing.T, s storage.ItemStore) {
	created := mustCreate(t, s, NewTestItem("u1", "Laptop"))

	updated, err := s.UpdateItem(context.Background(), created.ID, api.ItemPatch{})
	if err != nil {
		t.Fatalf("UpdateItem failed: %v", err)
	}
	if !updated.UpdatedAt.After(created.UpdatedAt) {
		t.Errorf("UpdatedAt did not advance: %v -> %v", created.UpdatedAt, updated.UpdatedAt)
	}
}

func testUpdateNotFound(t *testing.T, s storage.ItemStore) {
	name := "x"
	for _, id := range []string{api.NewItemID(), "bogus"} {
		_, err := s.UpdateItem(context.Background(), id, api.ItemPatch{Name: &name})
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("UpdateItem(%q) = %v, want ErrNotFound", id, err)
		}
	}
}

func testCreateConstraint(t *testing.T, s storage.ItemStore) {
	ctx := context.Background()

	negQty := NewTestItem("u1", "bad quantity")
	negQty.Quantity = -1
	if _, err := s.CreateItem(ctx, negQty); !errors.Is(err, storage.ErrConstraint) {
		t.Errorf("CreateItem(quantity=-1) = %v, want ErrConstraint", err)
	}

	hugeQty := NewTestItem("u1", "huge quantity")
	hugeQty.Quantity = storage.MaxQuantity + 1
	if _, err := s.CreateItem(ctx, hugeQty); !errors.Is(err, storage.ErrConstraint) {
		t.Errorf("CreateItem(quantity=MaxQuantity+1) = %v, want ErrConstraint", err)
	}

	negPrice := NewTestItem("u1", "bad price")
	negPrice.Price = -5
	if _, err := s.CreateItem(ctx, negPrice); !errors.Is(err, storage.ErrConstraint) {
		t.Errorf("CreateItem(price=-5) = %v, want ErrConstraint", err)
	}

	items, err := s.ListItems(ctx, "u1")
	if err != nil {
		t.Fatalf("ListItems failed: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("rejected items were persisted: %d", len(items))
	}
}

func testUpdateConstraint(t *testing.T, s storage.ItemStore) {
	ctx := context.Background()
	created := mustCreate(t, s, NewTestItem("u1", "Laptop"))

	price := -1.0
	if _, err := s.UpdateItem(ctx, created.ID, api.ItemPatch{Price: &price}); !errors.Is(err, storage.ErrConstraint) {
		t.Fatalf("UpdateItem(price=-1) = %v, want ErrConstraint", err)
	}

	qty := storage.MaxQuantity + 1
	if _, err := s.UpdateItem(ctx, created.ID, api.ItemPatch{Quantity: &qty}); !errors.Is(err, storage.ErrConstraint) {
		t.Fatalf("UpdateItem(quantity=MaxQuantity+1) = %v, want ErrConstraint", err)
	}

	got, err := s.GetItem(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if got.Price != created.Price || got.Quantity != created.Quantity || !got.UpdatedAt.Equal(created.UpdatedAt) {
		t.Errorf("rejected update modified the item: %+v", got)
	}
}

func testDelete(t *testing.T, s storage.ItemStore) {
	ctx := context.Background()
	created := mustCreate(t, s, NewTestItem("u1", "Laptop"))
	kept := mustCreate(t, s, NewTestItem("u1", "Monitor"))

	if err := s.DeleteItem(ctx, created.ID); err != nil {
		t.Fatalf("DeleteItem failed: %v", err)
	}
	if _, err := s.GetItem(ctx, created.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetItem after delete = %v, want ErrNotFound", err)
	}
	if err := s.DeleteItem(ctx, created.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second DeleteItem = %v, want ErrNotFound", err)
	}
	if err := s.DeleteItem(ctx, "bogus"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("DeleteItem(bogus) = %v, want ErrNotFound", err)
	}

	items, err := s.ListItems(ctx, "u1")
	if err != nil {
		t.Fatalf("ListItems failed: %v", err)
	}
	if len(items) != 1 || items[0].ID != kept.ID {
		t.Errorf("ListItems after delete = %v, want only %q", items, kept.ID)
	}
}

func testConcurrentCreate(t *testing.T, s storage.ItemStore) {
	ctx := context.Background()
	const n = 20

	var wg sync.WaitGroup
	ids := make(chan string, n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			item, err := s.CreateItem(ctx, NewTestItem("u1", "concurrent"))
			if err != nil {
				errs <- err
				return
			}
			ids <- item.ID
		}()
	}
	wg.Wait()
	close(ids)
	close(errs)

	for err := range errs {
		t.Errorf("CreateItem failed: %v", err)
	}

	seen := make(map[string]bool)
	for id := range ids {
		if seen[id] {
			t.Errorf("duplicate ID %q", id)
		}
		seen[id] = true
	}

	items, err := s.ListItems(ctx, "u1")
	if err != nil {
		t.Fatalf("ListItems failed: %v", err)
	}
	if len(items) != n {
		t.Errorf("len(items) = %d, want %d", len(items), n)
	}
}

func testHealthCheck(t *testing.T, s storage.ItemStore) {
	if err := s.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck failed: %v", err)
	}
}
