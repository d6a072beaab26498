package notify

import (
	"context"
	"errors"
	"fmt"
	"scorepusher/lib/scores"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	name     string
	err      error
	mutex    sync.Mutex
	messages []string
}

func (c *fakeChannel) Type() string {
	return c.name
}

func (c *fakeChannel) Push(ctx context.Context, message string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.messages = append(c.messages, message)
	return c.err
}

type countingPacer struct {
	calls int
	err   error
}

func (p *countingPacer) Pace(ctx context.Context) error {
	p.calls++
	return p.err
}

type statusError struct{ code int }

func (e statusError) Error() string   { return fmt.Sprintf("status %d", e.code) }
func (e statusError) StatusCode() int { return e.code }

func newChange() scores.Change {
	return scores.Change{
		Kind: scores.ChangeNew,
		Record: scores.Record{
			Year:         "2023-2024",
			Term:         "1",
			CourseCode:   "B1100011S",
			CourseName:   "程序设计",
			CourseNature: "必修",
			Credit:       3,
			GradePoint:   4,
			Score:        "95",
		},
	}
}

func TestDispatchIsolatesFailures(t *testing.T) {
	failing := &fakeChannel{name: "telegram", err: statusError{code: 500}}
	working := &fakeChannel{name: "email"}
	pacer := &countingPacer{}

	d := Dispatcher{Pacer: pacer}
	failures, err := d.Dispatch(context.Background(), newChange(), []Channel{failing, working})
	require.NoError(t, err)

	require.Len(t, failures, 1)
	require.Equal(t, 0, failures[0].Index)
	require.Equal(t, "telegram", failures[0].Channel)
	require.Equal(t, "status", ErrorKind(failures[0]))

	expected, err := scores.Render(newChange())
	require.NoError(t, err)
	require.Equal(t, []string{expected}, failing.messages)
	require.Equal(t, []string{expected}, working.messages)
	require.Equal(t, 2, pacer.calls)
}

func TestDispatchNoChannels(t *testing.T) {
	pacer := &countingPacer{}
	failures, err := Dispatcher{Pacer: pacer}.Dispatch(context.Background(), newChange(), nil)
	require.NoError(t, err)
	require.Empty(t, failures)
	require.Equal(t, 0, pacer.calls)
}

func TestDispatchStopsWhenCanceled(t *testing.T) {
	first := &fakeChannel{name: "a"}
	second := &fakeChannel{name: "b"}
	pacer := &countingPacer{err: context.Canceled}

	_, err := Dispatcher{Pacer: pacer}.Dispatch(context.Background(), newChange(), []Channel{first, second})
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, first.messages, 1)
	require.Len(t, second.messages, 0)
}

func TestDispatchAll(t *testing.T) {
	channel := &fakeChannel{name: "a"}
	broken := scores.Change{Kind: scores.ChangeUpdated, Record: newChange().Record}
	removed := newChange()
	removed.Kind = scores.ChangeRemoved

	failures, err := Dispatcher{Pacer: NoPacer{}}.DispatchAll(
		context.Background(),
		[]scores.Change{newChange(), broken, removed},
		[]Channel{channel},
	)
	require.NoError(t, err)
	require.Empty(t, failures)
	// the updated change without a previous record cannot be rendered
	require.Len(t, channel.messages, 2)
	require.Contains(t, channel.messages[1], "【成绩移除】")
}

func TestRandomPacer(t *testing.T) {
	pacer := RandomPacer{Min: 5 * time.Millisecond, Max: 10 * time.Millisecond}
	for i := 0; i < 100; i++ {
		d := pacer.Duration()
		require.GreaterOrEqual(t, d, pacer.Min)
		require.Less(t, d, pacer.Max)
	}

	start := time.Now()
	require.NoError(t, pacer.Pace(context.Background()))
	require.GreaterOrEqual(t, time.Since(start), pacer.Min)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, DefaultPacer.Pace(ctx), context.Canceled)

	require.Equal(t, time.Second, RandomPacer{Min: time.Second, Max: time.Second}.Duration())
}

func TestBuild(t *testing.T) {
	registry := NewRegistry()
	registry.Register("fake", func(fields map[string]any) (Channel, error) {
		if _, ok := fields["type"]; ok {
			return nil, errors.New("type should be stripped")
		}
		name, _ := fields["name"].(string)
		if name == "" {
			return nil, errors.New("name is required")
		}
		return &fakeChannel{name: name}, nil
	})

	channels, errs := registry.Build([]map[string]any{
		{"type": "fake", "name": "first"},
		{"type": "pigeon"},
		{"name": "untyped"},
		{"type": "fake"},
		{"type": "fake", "name": "second"},
	})

	require.Len(t, channels, 2)
	require.Equal(t, "first", channels[0].Type())
	require.Equal(t, "second", channels[1].Type())

	require.Len(t, errs, 3)
	require.ErrorIs(t, errs[0], ErrUnknownType)
	require.ErrorIs(t, errs[1], ErrMissingType)
	var constructErr *ConstructError
	require.True(t, errors.As(errs[2], &constructErr))
	require.Equal(t, 3, constructErr.Index)
}

func TestDefaultRegistry(t *testing.T) {
	registry := Default()
	require.Equal(t, []string{"email", "telegram"}, registry.Types())

	channels, errs := registry.Build([]map[string]any{
		{"type": "telegram", "token": "t", "chat_id": "1"},
		{"type": "telegram", "chat_id": "1"},
		{"type": "email", "server": "localhost", "port": 25, "from": "a@b.c", "to": "d@e.f"},
	})
	require.Len(t, channels, 2)
	require.Len(t, errs, 1)
	require.Equal(t, "telegram", channels[0].Type())
	require.Equal(t, "email", channels[1].Type())
}

func TestErrorKind(t *testing.T) {
	require.Equal(t, "timeout", ErrorKind(fmt.Errorf("wrap: %w", context.DeadlineExceeded)))
	require.Equal(t, "canceled", ErrorKind(context.Canceled))
	require.Equal(t, "status", ErrorKind(&PushError{Err: statusError{code: 400}}))
	require.Equal(t, "unknown", ErrorKind(errors.New("boom")))
}
