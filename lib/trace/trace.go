// Package trace records lifecycle events and encodes them for later
// inspection.
//
// A Recorder satisfies the event hook interface of the parent package, so it
// can be passed wherever a dispatcher is accepted. Recorded traces encode to
// msgpack; node payloads are flattened to their outer HTML and request or
// response payloads to a short summary so that the encoding is
// self-contained.
package trace

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/net/html"

	"github.com/pthm/tlform/lib/dom"
)

// ErrInvalidTrace is returned by Decode for data that is not a trace.
var ErrInvalidTrace = errors.New("trace: invalid trace data")

// Version is the encoding version written by Encode.
const Version = 1

// Event is one recorded dispatch.
type Event struct {
	Name string
	Data map[string]any
	At   time.Time
}

// Entry is the encoded form of an Event.
type Entry struct {
	Name string            `msgpack:"n"`
	Data map[string]string `msgpack:"d,omitempty"`
	At   int64             `msgpack:"t"`
}

type envelope struct {
	Version int     `msgpack:"v"`
	Entries []Entry `msgpack:"e"`
}

// Recorder collects dispatched events. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	now    func() time.Time
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{now: time.Now}
}

// Dispatch records the event.
func (r *Recorder) Dispatch(name string, data map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Name: name, Data: data, At: r.now()})
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Names returns the recorded event names in order.
func (r *Recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.events))
	for i, e := range r.events {
		names[i] = e.Name
	}
	return names
}

// Last returns the most recent event with the given name.
func (r *Recorder) Last(name string) (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Name == name {
			return r.events[i], true
		}
	}
	return Event{}, false
}

// Reset drops all recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// Entries flattens the recorded events into their encodable form.
func (r *Recorder) Entries() []Entry {
	events := r.Events()
	entries := make([]Entry, len(events))
	for i, e := range events {
		entries[i] = Entry{Name: e.Name, At: e.At.UnixMilli()}
		if len(e.Data) > 0 {
			entries[i].Data = make(map[string]string, len(e.Data))
			for k, v := range e.Data {
				entries[i].Data[k] = summarize(v)
			}
		}
	}
	return entries
}

// Encode serializes the recorded trace as msgpack.
func (r *Recorder) Encode() ([]byte, error) {
	return msgpack.Marshal(envelope{Version: Version, Entries: r.Entries()})
}

// Decode parses a trace produced by Encode.
func Decode(data []byte) ([]Entry, error) {
	var env envelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTrace, err)
	}
	if env.Version != Version {
		return nil, fmt.Errorf("%w: version %d", ErrInvalidTrace, env.Version)
	}
	return env.Entries, nil
}

// summarize renders a payload value as a string.
func summarize(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case *html.Node:
		return dom.OuterHTML(x)
	case *http.Request:
		return x.Method + " " + x.URL.String()
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprintf("%v", x)
	}
}
