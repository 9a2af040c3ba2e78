package server

import "context"

type ctxKey int

const ctxKeySubject ctxKey = iota

// contextWithSubject stores the authenticated subject on the context.
func contextWithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, ctxKeySubject, subject)
}
