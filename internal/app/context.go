package app

import "context"

type contextKey struct{}

// WithApp returns a child context carrying app.
func WithApp(ctx context.Context, app *App) context.Context {
	return context.WithValue(ctx, contextKey{}, app)
}

// FromContext returns the App carried by ctx.
func FromContext(ctx context.Context) (*App, bool) {
	app, ok := ctx.Value(contextKey{}).(*App)
	return app, ok && app != nil
}

// MustFromContext returns the App carried by ctx. A missing App is a wiring
// bug, so it panics.
func MustFromContext(ctx context.Context) *App {
	app, ok := FromContext(ctx)
	if !ok {
		panic("app: context has no *App; wrap it with app.WithApp at start-up")
	}
	return app
}
