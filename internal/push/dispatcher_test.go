package push

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messenger-service/internal/models"
)

func enabledUser(tokens ...string) models.User {
	return models.User{
		ID:                   "u2",
		Name:                 "Bob",
		PushTokens:           tokens,
		MessageNotifications: true,
		PushNotifications:    true,
	}
}

func TestNotifySingleBatch(t *testing.T) {
	var (
		mu      sync.Mutex
		batches [][]Notification
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var batch []Notification
		require.NoError(t, json.NewDecoder(r.Body).Decode(&batch))
		mu.Lock()
		batches = append(batches, batch)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	d := NewDispatcher(server.URL)
	d.Notify(context.Background(), enabledUser("tok-1"), "Alice", "hi", map[string]string{"chatKey": "a-b", "from": "u1"})

	require.Len(t, batches, 1)
	require.Len(t, batches[0], 1)
	assert.Equal(t, "tok-1", batches[0][0].To)
	assert.Equal(t, "Alice", batches[0][0].Title)
	assert.Equal(t, "hi", batches[0][0].Body)
	assert.Equal(t, "default", batches[0][0].Sound)
	assert.Equal(t, "a-b", batches[0][0].Data["chatKey"])
}

func TestNotifySplitsIntoBatchesOf100(t *testing.T) {
	var (
		mu    sync.Mutex
		sizes []int
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var batch []Notification
		require.NoError(t, json.NewDecoder(r.Body).Decode(&batch))
		mu.Lock()
		sizes = append(sizes, len(batch))
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	tokens := make([]string, 150)
	for i := range tokens {
		tokens[i] = fmt.Sprintf("tok-%d", i)
	}

	d := NewDispatcher(server.URL)
	d.Notify(context.Background(), enabledUser(tokens...), "Alice", "hi", nil)

	assert.Equal(t, []int{100, 50}, sizes)
}

func TestNotifyFailedBatchDoesNotAbortRemaining(t *testing.T) {
	var (
		mu    sync.Mutex
		calls int
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		first := calls == 1
		mu.Unlock()
		if first {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	tokens := make([]string, 101)
	for i := range tokens {
		tokens[i] = fmt.Sprintf("tok-%d", i)
	}

	d := NewDispatcher(server.URL)
	d.Notify(context.Background(), enabledUser(tokens...), "Alice", "hi", nil)

	assert.Equal(t, 2, calls)
}

func TestNotifyGatedByPreferences(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected when notifications are disabled")
	}))
	defer server.Close()

	d := NewDispatcher(server.URL)

	muted := enabledUser("tok-1")
	muted.MessageNotifications = false
	d.Notify(context.Background(), muted, "Alice", "hi", nil)

	noPush := enabledUser("tok-1")
	noPush.PushNotifications = false
	d.Notify(context.Background(), noPush, "Alice", "hi", nil)

	d.Notify(context.Background(), enabledUser(), "Alice", "hi", nil)
}

func TestTruncateBody(t *testing.T) {
	assert.Equal(t, "short", truncateBody("short"))

	long := strings.Repeat("x", 120)
	got := truncateBody(long)
	assert.Len(t, got, 80)
	assert.Equal(t, strings.Repeat("x", 77)+"...", got)
}
