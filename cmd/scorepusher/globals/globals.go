package globals

import (
	"context"
)

type contextKey struct{}

type Value struct {
	Config Config
	Debug  bool
}

func Set(ctx context.Context, value *Value) context.Context {
	return context.WithValue(ctx, contextKey{}, value)
}

func Get(ctx context.Context) *Value {
	return ctx.Value(contextKey{}).(*Value)
}
