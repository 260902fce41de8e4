package sim

// Middleware is one stage of a component. A component that is organized as a
// list of middlewares ticks the stages in order every cycle.
type Middleware interface {
	// Tick processes a tick event. It returns true if progress is made.
	Tick() bool
}

// MiddlewareHolder can maintain a list of middleware.
type MiddlewareHolder struct {
	middlewares []Middleware
}

// AddMiddleware adds a middleware to the holder.
func (holder *MiddlewareHolder) AddMiddleware(middleware Middleware) {
	holder.middlewares = append(holder.middlewares, middleware)
}

// Middlewares returns the list of middleware.
func (holder *MiddlewareHolder) Middlewares() []Middleware {
	return holder.middlewares
}

// Tick ticks all the middlewares, even if an earlier one has made progress.
func (holder *MiddlewareHolder) Tick() bool {
	progress := false

	for _, middleware := range holder.middlewares {
		progress = middleware.Tick() || progress
	}

	return progress
}
