package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-monolith/mono/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/shop-chat-client/auth"
	"github.com/example/shop-chat-client/domain/chat"
	"github.com/example/shop-chat-client/restclient"
	"github.com/example/shop-chat-client/stubbackend"
)

// mockLogger implements types.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(msg string, args ...any)         {}
func (m *mockLogger) Info(msg string, args ...any)          {}
func (m *mockLogger) Warn(msg string, args ...any)          {}
func (m *mockLogger) Error(msg string, args ...any)         {}
func (m *mockLogger) With(args ...any) types.Logger         { return m }
func (m *mockLogger) WithError(err error) types.Logger      { return m }
func (m *mockLogger) WithModule(module string) types.Logger { return m }

func seededBackend(t *testing.T, roomID string, count int) *stubbackend.Backend {
	t.Helper()
	backend := stubbackend.New()
	require.NoError(t, backend.Start())
	t.Cleanup(func() { _ = backend.Stop() })

	backend.AddRoom(chat.Room{ID: roomID, PeerID: "p1", PeerName: "Alice"})

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	msgs := make([]chat.Message, 0, count)
	for i := 0; i < count; i++ {
		msgs = append(msgs, chat.Message{
			ID:        "m" + string(rune('1'+i)),
			RoomID:    roomID,
			SenderID:  "p1",
			Type:      chat.MessageText,
			Content:   "message",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	backend.SeedHistory(roomID, msgs)
	return backend
}

func newTestModule(t *testing.T, baseURL string) *Module {
	t.Helper()
	rest := restclient.New(baseURL, auth.NewStaticTokenProvider("test-token"))
	return NewModule(&mockLogger{}, rest)
}

func TestModule_LoadHistory_AscendingOrder(t *testing.T) {
	backend := seededBackend(t, "r1", 5)
	module := newTestModule(t, backend.URL())

	// Page 0 is the newest page; the backend serves it newest-first and the
	// loader must hand it back ascending.
	msgs, err := module.LoadHistory(context.Background(), "r1", 0, 3)
	require.NoError(t, err)
	require.Len(t, msgs, 3)

	assert.Equal(t, "m3", msgs[0].ID)
	assert.Equal(t, "m4", msgs[1].ID)
	assert.Equal(t, "m5", msgs[2].ID)
	for i := 1; i < len(msgs); i++ {
		assert.True(t, msgs[i].CreatedAt.After(msgs[i-1].CreatedAt),
			"messages must ascend by creation time")
	}
}

func TestModule_LoadHistory_OlderPage(t *testing.T) {
	backend := seededBackend(t, "r1", 5)
	module := newTestModule(t, backend.URL())

	msgs, err := module.LoadHistory(context.Background(), "r1", 1, 3)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assert.Equal(t, "m1", msgs[0].ID)
	assert.Equal(t, "m2", msgs[1].ID)
}

func TestModule_LoadHistory_UnknownRoom(t *testing.T) {
	backend := seededBackend(t, "r1", 1)
	module := newTestModule(t, backend.URL())

	_, err := module.LoadHistory(context.Background(), "missing", 0, 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, chat.ErrNotFound), "expected ErrNotFound, got %v", err)
}

func TestModule_LoadHistory_NetworkError(t *testing.T) {
	module := newTestModule(t, "http://127.0.0.1:1")

	_, err := module.LoadHistory(context.Background(), "r1", 0, 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, chat.ErrNetwork), "expected ErrNetwork, got %v", err)
}

func TestNormalize(t *testing.T) {
	at := func(min int) time.Time {
		return time.Date(2026, 8, 1, 12, min, 0, 0, time.UTC)
	}

	t.Run("reverses newest-first page", func(t *testing.T) {
		msgs := []chat.Message{
			{ID: "c", CreatedAt: at(3)},
			{ID: "b", CreatedAt: at(2)},
			{ID: "a", CreatedAt: at(1)},
		}
		normalize(msgs)
		assert.Equal(t, "a", msgs[0].ID)
		assert.Equal(t, "b", msgs[1].ID)
		assert.Equal(t, "c", msgs[2].ID)
	})

	t.Run("leaves ascending page untouched", func(t *testing.T) {
		msgs := []chat.Message{
			{ID: "a", CreatedAt: at(1)},
			{ID: "b", CreatedAt: at(2)},
		}
		normalize(msgs)
		assert.Equal(t, "a", msgs[0].ID)
		assert.Equal(t, "b", msgs[1].ID)
	})

	t.Run("single message", func(t *testing.T) {
		msgs := []chat.Message{{ID: "a", CreatedAt: at(1)}}
		normalize(msgs)
		assert.Equal(t, "a", msgs[0].ID)
	})
}
