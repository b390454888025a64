package reload

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/replus/internal/engine"
	"github.com/zjrosen/replus/internal/template"
	"github.com/zjrosen/replus/internal/watcher"
)

func buildYear(ctx context.Context) (*engine.Engine, error) {
	set, err := template.NewSet(template.Definition{
		Type:      "year",
		Fragments: map[string][]string{"year": {`\d{4}`}},
		Patterns:  []string{"{{year}}"},
	})
	if err != nil {
		return nil, err
	}
	return engine.New(ctx, set)
}

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		require.FailNow(t, "timeout waiting for event")
	}
	return Event{}
}

func TestHub_ReloadPublishesToEverySubscriber(t *testing.T) {
	hub := NewHub(buildYear)
	defer hub.Close()

	ctx := context.Background()
	ch1 := hub.Subscribe(ctx)
	ch2 := hub.Subscribe(ctx)
	require.Equal(t, 2, hub.SubscriberCount())

	got := hub.Reload(ctx, []string{"year.yaml"})
	require.Equal(t, Reloaded, got.Kind)
	require.NoError(t, got.Err)
	require.Equal(t, []string{"year"}, got.Engine.Types())

	for _, ch := range []<-chan Event{ch1, ch2} {
		ev := receive(t, ch)
		require.Equal(t, Reloaded, ev.Kind)
		require.Equal(t, []string{"year.yaml"}, ev.Files)
		require.Same(t, got.Engine, ev.Engine)
		require.False(t, ev.At.IsZero())
	}
}

func TestHub_FailedBuild(t *testing.T) {
	hub := NewHub(func(context.Context) (*engine.Engine, error) {
		return nil, errors.New("bad template")
	})
	defer hub.Close()

	ch := hub.Subscribe(context.Background())
	hub.Reload(context.Background(), nil)

	ev := receive(t, ch)
	require.Equal(t, Failed, ev.Kind)
	require.EqualError(t, ev.Err, "bad template")
	require.Nil(t, ev.Engine)
}

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	hub := NewHub(buildYear)
	hub.bufferSize = 1
	defer hub.Close()

	ch := hub.Subscribe(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Reload(context.Background(), []string{"a"})
		hub.Reload(context.Background(), []string{"b"})
		hub.Reload(context.Background(), []string{"c"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
	require.Equal(t, []string{"a"}, receive(t, ch).Files)
}

func TestHub_ContextCancellationUnsubscribes(t *testing.T) {
	hub := NewHub(buildYear)
	defer hub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch := hub.Subscribe(ctx)
	cancel()

	require.Eventually(t, func() bool { return hub.SubscriberCount() == 0 }, time.Second, 5*time.Millisecond)
	_, ok := <-ch
	require.False(t, ok, "channel should be closed")
}

func TestHub_CloseClosesSubscribers(t *testing.T) {
	hub := NewHub(buildYear)
	ch := hub.Subscribe(context.Background())

	hub.Close()
	hub.Close()

	_, ok := <-ch
	require.False(t, ok)

	late := hub.Subscribe(context.Background())
	_, ok = <-late
	require.False(t, ok, "subscribing after close yields a closed channel")
	hub.Reload(context.Background(), nil)
}

func TestHub_RunConsumesChanges(t *testing.T) {
	hub := NewHub(buildYear)
	defer hub.Close()

	ch := hub.Subscribe(context.Background())
	changes := make(chan watcher.Change, 1)

	stopped := make(chan struct{})
	go func() {
		hub.Run(context.Background(), changes)
		close(stopped)
	}()

	changes <- watcher.Change{Files: []string{"year.json"}}
	require.Equal(t, []string{"year.json"}, receive(t, ch).Files)

	close(changes)
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after changes closed")
	}
}

func TestListen(t *testing.T) {
	hub := NewHub(buildYear)
	defer hub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := hub.Subscribe(ctx)
	hub.Reload(ctx, []string{"x.yaml"})

	msg := Listen(ctx, ch)()
	ev, ok := msg.(Event)
	require.True(t, ok, "msg should be an Event")
	require.Equal(t, []string{"x.yaml"}, ev.Files)

	require.Nil(t, Listen(ctx, nil))

	closed := make(chan Event)
	close(closed)
	require.Nil(t, Listen(ctx, closed)())

	cancel()
	var cmd tea.Cmd = Listen(ctx, make(chan Event))
	require.Nil(t, cmd())
}
