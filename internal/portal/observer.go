package portal

// Observer receives the request/response/program log stream of the engine.
//
// Categories are [v1.CategoryRequest], [v1.CategoryResponse] and
// [v1.CategoryProgram]. Implementations must not block for long; a panic
// inside Notify is recovered and discarded by the engine.
type Observer interface {
	Notify(category, message string)
}

// ObserverFunc adapts a function to the [Observer] interface.
type ObserverFunc func(category, message string)

var _ Observer = ObserverFunc(nil)

// Notify implements [Observer].
func (f ObserverFunc) Notify(category, message string) {
	f(category, message)
}

// NopObserver returns an [Observer] that discards everything.
func NopObserver() Observer {
	return nopObserver{}
}

type nopObserver struct{}

// Notify implements [Observer].
func (nopObserver) Notify(category, message string) {
	// nothing
}

// MultiObserver fans every notification out to each non-nil observer in order.
// A panicking observer does not prevent the others from being called.
func MultiObserver(observers ...Observer) Observer {
	out := make(multiObserver, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			out = append(out, o)
		}
	}
	return out
}

type multiObserver []Observer

// Notify implements [Observer].
func (m multiObserver) Notify(category, message string) {
	for _, o := range m {
		safeNotify(o, category, message)
	}
}

// safeNotify calls o.Notify and swallows any panic raised by the sink.
func safeNotify(o Observer, category, message string) {
	defer func() {
		_ = recover()
	}()
	o.Notify(category, message)
}
