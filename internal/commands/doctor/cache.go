package doctor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hay-kot/pulse/internal/core/cache"
	"github.com/hay-kot/pulse/internal/core/config"
)

// roundTripKey is written and removed again by the round trip check.
const roundTripKey = "doctor/round-trip"

// statser is implemented by backends that can count their entries.
type statser interface {
	Stats(ctx context.Context) (live, expired int, err error)
}

// CacheCheck verifies the configured cache backend is reachable and usable.
type CacheCheck struct {
	backend string
	open    func(ctx context.Context) (cache.Store, error)
	fix     bool
}

// NewCacheCheck creates a new cache check. open builds the backend; if fix is
// true, expired entries are pruned.
func NewCacheCheck(backend string, open func(ctx context.Context) (cache.Store, error), fix bool) *CacheCheck {
	return &CacheCheck{
		backend: backend,
		open:    open,
		fix:     fix,
	}
}

func (c *CacheCheck) Name() string {
	return "Cache"
}

func (c *CacheCheck) Run(ctx context.Context) Result {
	result := Result{Name: c.Name()}

	if c.backend == config.BackendNone {
		result.Items = append(result.Items, CheckItem{
			Label:  "Backend",
			Status: StatusWarn,
			Detail: "caching disabled, every refresh hits the Slack API",
		})
		return result
	}

	store, err := c.open(ctx)
	if err != nil {
		result.Items = append(result.Items, CheckItem{
			Label:  "Backend",
			Status: StatusFail,
			Detail: err.Error(),
		})
		return result
	}
	if closer, ok := store.(interface{ Close() error }); ok {
		defer func() { _ = closer.Close() }()
	}

	result.Items = append(result.Items, CheckItem{
		Label:  "Backend",
		Status: StatusPass,
		Detail: c.backend,
	})

	result.Items = append(result.Items, roundTrip(ctx, store))

	s, ok := store.(statser)
	if !ok {
		return result
	}

	live, expired, err := s.Stats(ctx)
	if err != nil {
		result.Items = append(result.Items, CheckItem{
			Label:  "Entries",
			Status: StatusFail,
			Detail: err.Error(),
		})
		return result
	}

	result.Items = append(result.Items, CheckItem{
		Label:  "Entries",
		Status: StatusPass,
		Detail: fmt.Sprintf("%d live", live),
	})

	if expired == 0 {
		return result
	}

	if !c.fix {
		result.Items = append(result.Items, CheckItem{
			Label:   "Expired entries",
			Status:  StatusWarn,
			Detail:  fmt.Sprintf("%d expired entries (run 'pulse cache prune')", expired),
			Fixable: true,
		})
		return result
	}

	removed, err := store.Prune(ctx)
	if err != nil {
		result.Items = append(result.Items, CheckItem{
			Label:  "Expired entries",
			Status: StatusFail,
			Detail: fmt.Sprintf("failed to prune: %v", err),
		})
		return result
	}

	result.Items = append(result.Items, CheckItem{
		Label:  "Expired entries",
		Status: StatusPass,
		Detail: fmt.Sprintf("pruned %d entries", removed),
	})
	return result
}

func roundTrip(ctx context.Context, store cache.Store) CheckItem {
	item := CheckItem{Label: "Read/write"}

	want := []byte(time.Now().UTC().Format(time.RFC3339Nano))
	if err := store.Set(ctx, roundTripKey, want, time.Minute); err != nil {
		item.Status = StatusFail
		item.Detail = fmt.Sprintf("write: %v", err)
		return item
	}
	defer func() { _ = store.Delete(ctx, roundTripKey) }()

	got, err := store.Get(ctx, roundTripKey)
	switch {
	case errors.Is(err, cache.ErrMiss):
		item.Status = StatusFail
		item.Detail = "written entry was not found"
	case err != nil:
		item.Status = StatusFail
		item.Detail = fmt.Sprintf("read: %v", err)
	case string(got) != string(want):
		item.Status = StatusFail
		item.Detail = "read back a different value"
	default:
		item.Status = StatusPass
	}
	return item
}
