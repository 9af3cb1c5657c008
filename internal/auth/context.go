package auth

import "context"

type accountContextKey struct{}

// ContextWithAccount attaches the authenticated account to the context.
func ContextWithAccount(ctx context.Context, acc *Account) context.Context {
	if acc == nil {
		return ctx
	}
	return context.WithValue(ctx, accountContextKey{}, acc)
}

// AccountFromContext extracts the authenticated account from the context.
func AccountFromContext(ctx context.Context) (*Account, bool) {
	if ctx == nil {
		return nil, false
	}
	acc, ok := ctx.Value(accountContextKey{}).(*Account)
	if !ok || acc == nil {
		return nil, false
	}
	return acc, true
}

// AccountIDFromContext returns just the account id, for log enrichment.
func AccountIDFromContext(ctx context.Context) (string, bool) {
	acc, ok := AccountFromContext(ctx)
	if !ok {
		return "", false
	}
	return acc.ID, true
}
