package transport

import (
	"context"

	"github.com/rhuss/stockroom/pkg/api"
)

// InventoryHandler serves the owner-scoped inventory operations. Errors
// should be *api.APIError values; anything else is reported as a server
// error.
type InventoryHandler interface {
	List(ctx context.Context, caller api.Caller) ([]*api.Item, error)
	Get(ctx context.Context, caller api.Caller, id string) (*api.Item, error)
	Create(ctx context.Context, caller api.Caller, draft *api.ItemDraft) (*api.Item, error)
	Update(ctx context.Context, caller api.Caller, id string, patch api.ItemPatch) (*api.Item, error)
	Delete(ctx context.Context, caller api.Caller, id string) (*api.DeleteResult, error)
	Stats(ctx context.Context, caller api.Caller) (*api.Stats, error)
}

// HealthChecker reports whether the backing store can serve requests.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
