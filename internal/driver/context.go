package driver

import "context"

// A thread-local scoped slot is the classic way to let any code inside a
// driver scope reach the current ring without threading it through every
// call. Go has no stable notion of "current thread" (goroutines hop between
// OS threads at the scheduler's discretion), so the scope is carried on
// context.Context instead: whatever goroutine
// holds a ctx derived from WithDriver can reach the driver FromContext, and
// the carrying is explicit at every call site the way context always is in
// Go.
type driverKey struct{}

// WithDriver returns a context carrying d, for passing to code that expects
// to find a driver via FromContext.
func WithDriver(ctx context.Context, d *Driver) context.Context {
	return context.WithValue(ctx, driverKey{}, d)
}

// FromContext returns the driver carried by ctx. It panics if none is
// present: any public API that requires a driver scope is documented as
// such, and calling it outside one is a programming error, not a recoverable
// runtime condition.
func FromContext(ctx context.Context) *Driver {
	d, ok := ctx.Value(driverKey{}).(*Driver)
	if !ok || d == nil {
		panic("ringio: operation requires a driver scope; call it from within runtime.Run")
	}
	return d
}
