package feed

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/bookshare/internal/domain"
	"github.com/MrSnakeDoc/bookshare/internal/ledger"
	"github.com/MrSnakeDoc/bookshare/internal/logger"
)

func change(kind ledger.ChangeKind, isbn string, stock int) ledger.Change {
	return ledger.Change{Kind: kind, Entry: domain.BookEntry{ISBN: isbn, Title: "T-" + isbn, Stock: stock}}
}

func TestPublishFansOut(t *testing.T) {
	hub := NewHub(logger.NewNop())
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	hub.now = func() time.Time { return fixed }

	a, cancelA := hub.Subscribe()
	defer cancelA()
	b, cancelB := hub.Subscribe()
	defer cancelB()

	hub.Publish(change(ledger.ChangeDonate, "111", 3))

	for _, ch := range []<-chan Event{a, b} {
		ev := <-ch
		assert.NotEmpty(t, ev.ID)
		assert.Equal(t, "donate", ev.Kind)
		assert.Equal(t, "111", ev.ISBN)
		assert.Equal(t, "T-111", ev.Title)
		assert.Equal(t, 3, ev.Stock)
		assert.Equal(t, fixed, ev.At)
	}
}

func TestPublishWithoutSubscribers(t *testing.T) {
	hub := NewHub(logger.NewNop())
	assert.NotPanics(t, func() { hub.Publish(change(ledger.ChangeReceive, "111", 0)) })
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	hub := NewHub(logger.NewNop())
	_, cancel := hub.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < defaultBuffer+5; i++ {
			hub.Publish(change(ledger.ChangeDonate, "111", i))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}
	assert.Equal(t, int64(5), hub.Dropped())
}

func TestCancelAndClose(t *testing.T) {
	hub := NewHub(logger.NewNop())

	ch, cancel := hub.Subscribe()
	assert.Equal(t, 1, hub.Subscribers())
	cancel()
	cancel()
	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, hub.Subscribers())

	other, _ := hub.Subscribe()
	hub.Close()
	_, open = <-other
	assert.False(t, open)

	late, _ := hub.Subscribe()
	_, open = <-late
	assert.False(t, open, "subscribing after Close yields a closed channel")
}

func TestServeWSStreamsEvents(t *testing.T) {
	hub := NewHub(logger.NewNop())
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	hub.Publish(change(ledger.ChangeReceive, "222", 1))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev Event
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &ev))
	assert.Equal(t, "receive", ev.Kind)
	assert.Equal(t, "222", ev.ISBN)
	assert.Equal(t, 1, ev.Stock)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Subscribers() == 0 }, time.Second, 5*time.Millisecond)
}
