package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	DebateListKey    = "debates:list"
	CategoryListKey  = "debates:categories"
	DebateRecordKeyf = "debate:%d:record"
)

const (
	DebateListTTL   = 30 * time.Second
	CategoryListTTL = 30 * time.Minute
	DebateRecordTTL = 30 * time.Second
)

// DebateRecordKey caches one debate's projection without its responses.
func DebateRecordKey(debateID uint) string {
	return fmt.Sprintf(DebateRecordKeyf, debateID)
}

func Invalidate(ctx context.Context, keys ...string) {
	if client != nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

// InvalidateDebate drops every cached projection that includes the debate.
func InvalidateDebate(ctx context.Context, debateID uint) {
	Invalidate(ctx, DebateListKey, DebateRecordKey(debateID))
}

func InvalidateCategories(ctx context.Context) {
	Invalidate(ctx, CategoryListKey)
}
