package engine

import "context"

// mainThreadKey tags a context as running on the engine's main dispatch
// path. Go has no ThreadId to compare against the way the original
// runtime does with std::thread::current().id(); instead DispatchEvaluate
// tags the context it is given with this key, so RunOnMainThread can tell
// "am I already on the path that owns the JS runtime" from a context
// derived from it, without any goroutine-identity trick. Callback and
// export functions (callback.Func, ExportFunc) take no context, so the tag
// does not reach code running inside them.
type mainThreadKey struct{}

// withMainThread returns a context marked as running on the engine's main
// path, for use by code invoked from DispatchEvaluate.
func withMainThread(ctx context.Context) context.Context {
	return context.WithValue(ctx, mainThreadKey{}, true)
}

// isMainThread reports whether ctx was tagged by withMainThread.
func isMainThread(ctx context.Context) bool {
	v, _ := ctx.Value(mainThreadKey{}).(bool)
	return v
}
