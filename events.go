package tlform

import (
	"fmt"

	"go.uber.org/zap"
)

// Lifecycle events, named after the navigation library's own so listeners
// cannot tell a form render from a real visit. Per submission they fire in
// this order.
const (
	EventRequestStart = "turbolinks:request-start"
	EventRequestEnd   = "turbolinks:request-end"
	EventBeforeRender = "turbolinks:before-render"
	EventRender       = "turbolinks:render"
	EventLoad         = "turbolinks:load"
)

// Dispatcher is the navigation library's event hook.
//
// Payloads follow the library's convention: before-render carries
// "newBody" (*html.Node), request-start and request-end carry "xhr".
type Dispatcher interface {
	Dispatch(name string, data map[string]any)
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(name string, data map[string]any)

// Dispatch calls f.
func (f DispatcherFunc) Dispatch(name string, data map[string]any) {
	f(name, data)
}

// Dispatchers fans an event out to each dispatcher in order.
type Dispatchers []Dispatcher

// Dispatch calls every dispatcher.
func (ds Dispatchers) Dispatch(name string, data map[string]any) {
	for _, d := range ds {
		d.Dispatch(name, data)
	}
}

type nopDispatcher struct{}

func (nopDispatcher) Dispatch(string, map[string]any) {}

// safeDispatch delivers an event and turns a listener panic into a log line.
func safeDispatch(d Dispatcher, logger *zap.Logger, name string, data map[string]any) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("tlform: event listener panicked",
				zap.String("event", name),
				zap.String("panic", fmt.Sprint(r)))
		}
	}()
	d.Dispatch(name, data)
}
