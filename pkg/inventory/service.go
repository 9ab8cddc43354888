package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rhuss/stockroom/pkg/api"
	"github.com/rhuss/stockroom/pkg/debug"
	"github.com/rhuss/stockroom/pkg/storage"
)

// Client-facing messages.
const (
	msgNotFound      = "Item not found"
	msgUnauthorized  = "Not authorized"
	msgDeleted       = "Item deleted successfully"
	msgTimeout       = "The inventory store did not respond in time"
	msgUnavailable   = "The inventory store is temporarily unavailable"
	msgNoCredentials = "Authentication required"
)

// Service implements the inventory operations on top of an ItemStore.
type Service struct {
	store storage.ItemStore
	cfg   Config
}

// New creates a Service. The store must not be nil.
func New(store storage.ItemStore, cfg Config) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("inventory: store must not be nil")
	}
	cfg.defaults()
	return &Service{store: store, cfg: cfg}, nil
}

// List returns the caller's items, newest first. The result is never nil.
func (s *Service) List(ctx context.Context, caller api.Caller) ([]*api.Item, error) {
	if err := checkCaller(caller); err != nil {
		return nil, err
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	items, err := s.store.ListItems(ctx, caller.UserID)
	if err != nil {
		return nil, s.storeError(ctx, "list", err)
	}
	if items == nil {
		items = []*api.Item{}
	}
	return items, nil
}

// Get returns a single item owned by the caller.
func (s *Service) Get(ctx context.Context, caller api.Caller, id string) (*api.Item, error) {
	if err := checkCaller(caller); err != nil {
		return nil, err
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	return s.owned(ctx, caller, id)
}

// Create validates draft and persists it as a new item owned by caller.
// The store is not touched when a required field is missing.
func (s *Service) Create(ctx context.Context, caller api.Caller, draft *api.ItemDraft) (*api.Item, error) {
	if err := checkCaller(caller); err != nil {
		return nil, err
	}
	if draft == nil {
		return nil, api.NewInvalidRequestError("", "Please provide all required fields")
	}
	if apiErr := api.ValidateDraft(draft); apiErr != nil {
		return nil, apiErr
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	created, err := s.store.CreateItem(ctx, api.NewItem(draft, caller))
	if err != nil {
		return nil, s.storeError(ctx, "create", err)
	}

	debug.Log("inventory", "item created", "id", created.ID, "owner", caller.UserID)
	return created, nil
}

// Update applies patch to an item owned by caller. Ownership is resolved
// before the patch is validated.
func (s *Service) Update(ctx context.Context, caller api.Caller, id string, patch api.ItemPatch) (*api.Item, error) {
	if err := checkCaller(caller); err != nil {
		return nil, err
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	if _, err := s.owned(ctx, caller, id); err != nil {
		return nil, err
	}
	if apiErr := api.ValidatePatch(&patch); apiErr != nil {
		return nil, apiErr
	}

	updated, err := s.store.UpdateItem(ctx, id, patch)
	if err != nil {
		return nil, s.storeError(ctx, "update", err)
	}

	debug.Log("inventory", "item updated", "id", id, "owner", caller.UserID)
	return updated, nil
}

// Delete permanently removes an item owned by caller.
func (s *Service) Delete(ctx context.Context, caller api.Caller, id string) (*api.DeleteResult, error) {
	if err := checkCaller(caller); err != nil {
		return nil, err
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	if _, err := s.owned(ctx, caller, id); err != nil {
		return nil, err
	}
	if err := s.store.DeleteItem(ctx, id); err != nil {
		return nil, s.storeError(ctx, "delete", err)
	}

	debug.Log("inventory", "item deleted", "id", id, "owner", caller.UserID)
	return &api.DeleteResult{Message: msgDeleted, ID: id}, nil
}

// Stats summarizes the caller's inventory.
func (s *Service) Stats(ctx context.Context, caller api.Caller) (*api.Stats, error) {
	items, err := s.List(ctx, caller)
	if err != nil {
		return nil, err
	}

	stats := &api.Stats{TotalProducts: len(items)}
	categories := make(map[string]struct{})
	for _, it := range items {
		categories[it.Category] = struct{}{}
		if it.Quantity < s.cfg.LowStockThreshold {
			stats.LowStock++
		}
		stats.TotalValue += it.Price * float64(it.Quantity)
	}
	stats.TotalCategories = len(categories)
	return stats, nil
}

// owned loads id and checks that caller owns it.
func (s *Service) owned(ctx context.Context, caller api.Caller, id string) (*api.Item, error) {
	if !api.ValidateItemID(id) {
		return nil, api.NewNotFoundError(msgNotFound)
	}

	item, err := s.store.GetItem(ctx, id)
	if err != nil {
		return nil, s.storeError(ctx, "get", err)
	}
	if !item.OwnedBy(caller) {
		debug.Log("inventory", "ownership check failed", "id", id, "caller", caller.UserID)
		return nil, api.NewUnauthorizedError(msgUnauthorized)
	}
	return item, nil
}

// bound derives the per-operation context.
func (s *Service) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.OperationTimeout)
}

// storeError translates a storage error into the client-facing taxonomy.
func (s *Service) storeError(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return api.NewNotFoundError(msgNotFound)
	case errors.Is(err, storage.ErrConstraint):
		msg := constraintMessage(err)
		return api.NewInvalidRequestError(constraintParam(msg), msg)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		slog.Warn("store operation timed out", "op", op, "timeout", s.cfg.OperationTimeout)
		return api.NewTransientError(msgTimeout)
	default:
		slog.Error("store operation failed", "op", op, "error", err)
		return api.NewTransientError(msgUnavailable)
	}
}

func checkCaller(caller api.Caller) error {
	if caller.UserID == "" {
		return api.NewUnauthenticatedError(msgNoCredentials)
	}
	return nil
}

// constraintMessage strips the sentinel prefix from a wrapped
// ErrConstraint, leaving the field message.
func constraintMessage(err error) string {
	msg := err.Error()
	if i := strings.LastIndex(msg, storage.ErrConstraint.Error()+": "); i >= 0 {
		return msg[i+len(storage.ErrConstraint.Error())+2:]
	}
	return msg
}

// constraintParam extracts the field a constraint message refers to.
func constraintParam(msg string) string {
	field, _, _ := strings.Cut(msg, " ")
	switch field = strings.ToLower(field); field {
	case "name", "description", "quantity", "price", "category":
		return field
	}
	return ""
}
