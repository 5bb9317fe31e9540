package periods

import (
	"context"
	"fmt"
	"strconv"
)

const activeKey = "active"

// Lookup memoises period reads for a single request. It is not safe for
// concurrent writers: resolve the period before fanning out work and share
// the result.
type Lookup struct {
	repo  Repository
	cache map[string]Period
}

// NewLookup creates a request scoped lookup over repo.
func NewLookup(repo Repository) *Lookup {
	return &Lookup{repo: repo, cache: make(map[string]Period)}
}

// Resolve returns the period with the given ID, or the active period when
// id is nil. Each distinct key hits the repository at most once.
func (l *Lookup) Resolve(ctx context.Context, id *int64) (Period, error) {
	key := activeKey
	if id != nil {
		key = strconv.FormatInt(*id, 10)
	}
	if p, ok := l.cache[key]; ok {
		return p, nil
	}
	var (
		p   Period
		err error
	)
	if id != nil {
		p, err = l.repo.Get(ctx, *id)
	} else {
		p, err = l.repo.Active(ctx)
	}
	if err != nil {
		return Period{}, fmt.Errorf("resolve period %s: %w", key, err)
	}
	l.cache[key] = p
	return p, nil
}
