package cache

import (
	"context"
	"encoding/json"

	radix "github.com/mediocregopher/radix/v3"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/chat"
)

const previewKeyPrefix = "chat:preview:"

// RedisPreviews keeps the sidebar last-message summary per conversation in
// redis so the conversation list endpoint avoids a message-table scan.
// Implements chat.PreviewStore.
type RedisPreviews struct {
	pool *radix.Pool
}

func NewRedisPreviews(conf *core.Config) (*RedisPreviews, error) {
	pool, err := radix.NewPool("tcp", conf.Redis.Addr, conf.Redis.PoolSize)
	if err != nil {
		return nil, errors.Wrapf(err, "connecting to redis at %s", conf.Redis.Addr)
	}
	return &RedisPreviews{pool: pool}, nil
}

func (rp *RedisPreviews) Close() error {
	return rp.pool.Close()
}

// SetLastMessage implements chat.PreviewStore.
func (rp *RedisPreviews) SetLastMessage(ctx context.Context, conversationID string, p chat.Preview) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return errors.Wrap(err, "encoding preview")
	}
	err = rp.pool.Do(radix.Cmd(nil, "SET", previewKeyPrefix+conversationID, string(raw)))
	return errors.Wrapf(err, "storing preview for conversation %s", conversationID)
}

// markReadScript zeroes the unread count in place. Scripted so a
// concurrent SetLastMessage cannot land between the read and the write
// and be clobbered by a stale preview.
var markReadScript = radix.NewEvalScript(1, `
	local raw = redis.call("GET", KEYS[1])
	if not raw then return 0 end
	local p = cjson.decode(raw)
	if p.unread == 0 then return 0 end
	p.unread = 0
	redis.call("SET", KEYS[1], cjson.encode(p))
	return 1
`)

// MarkRead implements chat.PreviewStore.
func (rp *RedisPreviews) MarkRead(ctx context.Context, conversationID string) error {
	err := rp.pool.Do(markReadScript.Cmd(nil, previewKeyPrefix+conversationID))
	return errors.Wrapf(err, "marking preview read for conversation %s", conversationID)
}

// GetPreviews implements chat.PreviewStore. Conversations with no cached
// preview are simply absent from the result.
func (rp *RedisPreviews) GetPreviews(ctx context.Context, conversationIDs []string) (map[string]chat.Preview, error) {
	if len(conversationIDs) == 0 {
		return map[string]chat.Preview{}, nil
	}
	keys := make([]string, len(conversationIDs))
	for i, id := range conversationIDs {
		keys[i] = previewKeyPrefix + id
	}
	var raws []string
	if err := rp.pool.Do(radix.Cmd(&raws, "MGET", keys...)); err != nil {
		return nil, errors.Wrap(err, "fetching previews")
	}
	previews := make(map[string]chat.Preview, len(raws))
	for i, raw := range raws {
		if raw == "" {
			continue
		}
		var p chat.Preview
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			continue
		}
		previews[conversationIDs[i]] = p
	}
	return previews, nil
}
