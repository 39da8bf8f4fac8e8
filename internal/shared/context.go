package shared

import "context"

// Caller carries the authenticated identity and its accessible site keys
// through request context. The site key lists are raw "companyId_siteId"
// strings; the report engine derives its access scope from them.
type Caller struct {
	UserID          int64
	Email           string
	ProductionKeys  []string
	ConsumptionKeys []string
}

type callerContextKey struct{}

// ContextWithCaller stores the caller in context.
func ContextWithCaller(ctx context.Context, caller *Caller) context.Context {
	return context.WithValue(ctx, callerContextKey{}, caller)
}

// CallerFromContext extracts the caller from context.
func CallerFromContext(ctx context.Context) *Caller {
	caller, _ := ctx.Value(callerContextKey{}).(*Caller)
	return caller
}
