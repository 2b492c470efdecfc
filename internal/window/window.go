// Package window keeps a bounded per-chat history of message IDs and deletes
// the oldest ones from the chat as new entries arrive, approximating a tidy
// conversation view.
package window

import (
	"context"
	"sync"

	"kursbot/internal/transport"
	"kursbot/pkg/logx"
)

// Deleter is the one transport capability the window needs.
type Deleter interface {
	DeleteMessage(ctx context.Context, ref transport.MessageRef) error
}

type Manager struct {
	deleter Deleter
	log     logx.Logger
	limit   int

	mu      sync.Mutex
	windows map[int64][]int
}

func NewManager(deleter Deleter, limit int, log logx.Logger) *Manager {
	if limit <= 0 {
		limit = 5
	}
	return &Manager{
		deleter: deleter,
		log:     log,
		limit:   limit,
		windows: map[int64][]int{},
	}
}

// Record appends messageID to the chat's window and evicts oldest-first while
// over the cap. Remote deletion is best-effort: a failed delete (message
// already gone, permissions) is logged at debug and the local eviction still
// happens.
func (m *Manager) Record(ctx context.Context, chatID int64, messageID int) {
	var evicted []int

	m.mu.Lock()
	w := append(m.windows[chatID], messageID)
	for len(w) > m.limit {
		evicted = append(evicted, w[0])
		w = w[1:]
	}
	m.windows[chatID] = w
	m.mu.Unlock()

	for _, id := range evicted {
		if err := m.deleter.DeleteMessage(ctx, transport.MessageRef{ChatID: chatID, MessageID: id}); err != nil {
			m.log.Debug("evicted message delete failed",
				logx.Int64("chat", chatID), logx.Int("message", id), logx.Err(err))
		}
	}
}

// Len reports the current window size for a chat.
func (m *Manager) Len(chatID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.windows[chatID])
}
