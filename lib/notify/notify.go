// Package notify delivers rendered score changes to the configured
// channels.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sort"
)

// Channel is one configured delivery target.
type Channel interface {
	Type() string
	Push(ctx context.Context, message string) error
}

// Constructor builds a channel from its config entry, without the "type"
// discriminator.
type Constructor func(fields map[string]any) (Channel, error)

type Registry struct {
	constructors map[string]Constructor
}

func NewRegistry() *Registry {
	return &Registry{constructors: map[string]Constructor{}}
}

func (r *Registry) Register(name string, constructor Constructor) {
	r.constructors[name] = constructor
}

func (r *Registry) Types() []string {
	names := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ConstructError reports a channel config entry that could not be built.
type ConstructError struct {
	Index int
	Type  string
	Err   error
}

func (e *ConstructError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("channel %d: %s", e.Index, e.Err.Error())
	}
	return fmt.Sprintf("channel %d (%s): %s", e.Index, e.Type, e.Err.Error())
}

func (e *ConstructError) Unwrap() error {
	return e.Err
}

var ErrUnknownType = errors.New("unknown channel type")
var ErrMissingType = errors.New("missing channel type")

// Build constructs every entry it can. Entries that fail are logged,
// returned as *ConstructError and left out of the channel list.
func (r *Registry) Build(configs []map[string]any) ([]Channel, []error) {
	channels := []Channel{}
	var errs []error

	for i, config := range configs {
		name, _ := config["type"].(string)
		if name == "" {
			errs = append(errs, &ConstructError{Index: i, Err: ErrMissingType})
			continue
		}
		constructor, ok := r.constructors[name]
		if !ok {
			errs = append(errs, &ConstructError{Index: i, Type: name, Err: ErrUnknownType})
			continue
		}

		fields := make(map[string]any, len(config))
		for k, v := range config {
			if k != "type" {
				fields[k] = v
			}
		}
		channel, err := constructor(fields)
		if err != nil {
			errs = append(errs, &ConstructError{Index: i, Type: name, Err: err})
			continue
		}
		channels = append(channels, channel)
	}

	for _, err := range errs {
		slog.Error("failed to build channel, skipping it", "err", err)
	}
	return channels, errs
}

// PushError is a delivery failure of one channel, it never stops the
// remaining channels from being tried.
type PushError struct {
	Index   int
	Channel string
	Err     error
}

func (e *PushError) Error() string {
	return fmt.Sprintf("push to channel %d (%s): %s", e.Index, e.Channel, e.Err.Error())
}

func (e *PushError) Unwrap() error {
	return e.Err
}

// ErrorKind classifies a push failure for logging.
func ErrorKind(err error) string {
	var status interface{ StatusCode() int }
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.As(err, &status):
		return "status"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "timeout"
	case errors.As(err, &netErr):
		return "network"
	}
	return "unknown"
}
