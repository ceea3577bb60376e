package cache

import (
	"context"
	"sync"

	"github.com/darasahq/darasa/core/chat"
)

// InmemPreviews is the preview store used when redis is disabled.
// Implements chat.PreviewStore.
type InmemPreviews struct {
	mutex    sync.RWMutex
	previews map[string]chat.Preview
}

func NewInmemPreviews() *InmemPreviews {
	return &InmemPreviews{previews: make(map[string]chat.Preview)}
}

func (ip *InmemPreviews) SetLastMessage(ctx context.Context, conversationID string, p chat.Preview) error {
	ip.mutex.Lock()
	defer ip.mutex.Unlock()
	ip.previews[conversationID] = p
	return nil
}

func (ip *InmemPreviews) MarkRead(ctx context.Context, conversationID string) error {
	ip.mutex.Lock()
	defer ip.mutex.Unlock()
	if p, ok := ip.previews[conversationID]; ok && p.Unread != 0 {
		p.Unread = 0
		ip.previews[conversationID] = p
	}
	return nil
}

func (ip *InmemPreviews) GetPreviews(ctx context.Context, conversationIDs []string) (map[string]chat.Preview, error) {
	ip.mutex.RLock()
	defer ip.mutex.RUnlock()

	out := make(map[string]chat.Preview, len(conversationIDs))
	for _, id := range conversationIDs {
		if p, ok := ip.previews[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}
