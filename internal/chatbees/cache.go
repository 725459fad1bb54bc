package chatbees

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Querier is the read side of the service used by the chat and FAQ views.
type Querier interface {
	Ask(ctx context.Context, collection string, q Question) (Answer, error)
	GetOutlineFAQ(ctx context.Context, collection string, doc DocName) (OutlineFAQ, error)
	Summary(ctx context.Context, collection string, doc DocName) (string, error)
}

var _ Querier = (*Client)(nil)

// Cached memoizes outline and summary lookups, which only change when a
// document is re-registered. Ask is always forwarded.
type Cached struct {
	next     Querier
	outlines *expirable.LRU[string, OutlineFAQ]
	summary  *expirable.LRU[string, string]
}

var _ Querier = (*Cached)(nil)

func NewCached(next Querier, size int, ttl time.Duration) *Cached {
	if size <= 0 {
		size = 256
	}
	return &Cached{
		next:     next,
		outlines: expirable.NewLRU[string, OutlineFAQ](size, nil, ttl),
		summary:  expirable.NewLRU[string, string](size, nil, ttl),
	}
}

func cacheKey(collection string, doc DocName) string {
	return collection + "\x00" + doc.String()
}

func (c *Cached) Ask(ctx context.Context, collection string, q Question) (Answer, error) {
	return c.next.Ask(ctx, collection, q)
}

func (c *Cached) GetOutlineFAQ(ctx context.Context, collection string, doc DocName) (OutlineFAQ, error) {
	key := cacheKey(collection, doc)
	if v, ok := c.outlines.Get(key); ok {
		return v, nil
	}
	v, err := c.next.GetOutlineFAQ(ctx, collection, doc)
	if err != nil {
		return OutlineFAQ{}, err
	}
	c.outlines.Add(key, v)
	return v, nil
}

func (c *Cached) Summary(ctx context.Context, collection string, doc DocName) (string, error) {
	key := cacheKey(collection, doc)
	if v, ok := c.summary.Get(key); ok {
		return v, nil
	}
	v, err := c.next.Summary(ctx, collection, doc)
	if err != nil {
		return "", err
	}
	c.summary.Add(key, v)
	return v, nil
}
