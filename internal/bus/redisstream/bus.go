package redisstream

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hongjun500/chat-relay/pkg/logger"
)

// Bus 基于 Redis Stream 的跨节点广播通道；每个节点独立读取全部消息
type Bus struct {
	cli    *redis.Client
	stream string
	codec  Codec
	maxLen int64
	block  time.Duration
}

// Message 一次广播的跨节点表示
type Message struct {
	Node    string    `json:"node"`
	From    string    `json:"from,omitempty"`
	Payload []byte    `json:"payload"`
	When    time.Time `json:"when"`
}

func New(addr string, db int, stream string, codec Codec) *Bus {
	cli := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	return NewWithClient(cli, stream, codec)
}

func NewWithClient(cli *redis.Client, stream string, codec Codec) *Bus {
	if codec == nil {
		codec = JSONCodec{}
	}
	return &Bus{cli: cli, stream: stream, codec: codec, maxLen: 10000, block: 5 * time.Second}
}

func (b *Bus) Ping(ctx context.Context) error { return b.cli.Ping(ctx).Err() }

func (b *Bus) Publish(ctx context.Context, m *Message) error {
	payload, err := b.codec.Marshal(m)
	if err != nil {
		return err
	}
	return b.cli.XAdd(ctx, &redis.XAddArgs{
		Stream: b.stream,
		MaxLen: b.maxLen,
		Approx: true,
		Values: map[string]any{"data": payload, "enc": b.codec.Name()},
	}).Err()
}

type Handler func(ctx context.Context, m *Message) error

// startID 返回流中最新条目的 ID；流不存在或为空时为 "0-0"。
// 之后始终从具体 ID 续读，避免两次 XREAD 之间写入的消息因 "$" 被跳过。
func (b *Bus) startID(ctx context.Context) (string, error) {
	entries, err := b.cli.XRevRangeN(ctx, b.stream, "+", "-", 1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	if len(entries) == 0 {
		return "0-0", nil
	}
	return entries[0].ID, nil
}

// Consume blocks and delivers messages published after the call; cancel ctx to stop
func (b *Bus) Consume(ctx context.Context, handler Handler) error {
	var last string
	for {
		id, err := b.startID(ctx)
		if err == nil {
			last = id
			break
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.L().Sugar().Warnw("bus_start_error", "stream", b.stream, "err", err)
		if !sleepCtx(ctx, time.Second) {
			return ctx.Err()
		}
	}
	for {
		res, err := b.cli.XRead(ctx, &redis.XReadArgs{
			Streams: []string{b.stream, last},
			Count:   100,
			Block:   b.block,
		}).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// transient errors: back off and continue
			logger.L().Sugar().Warnw("bus_read_error", "stream", b.stream, "err", err)
			if !sleepCtx(ctx, time.Second) {
				return ctx.Err()
			}
			continue
		}
		for _, str := range res {
			for _, xmsg := range str.Messages {
				last = xmsg.ID
				raw, _ := xmsg.Values["data"].(string)
				var m Message
				if err := b.codec.Unmarshal([]byte(raw), &m); err != nil {
					logger.L().Sugar().Warnw("bus_decode_error", "id", xmsg.ID, "err", err)
					continue
				}
				if err := handler(ctx, &m); err != nil {
					logger.L().Sugar().Warnw("bus_handler_error", "id", xmsg.ID, "err", err)
				}
			}
		}
	}
}

func (b *Bus) Close() error { return b.cli.Close() }

// sleepCtx 等待 d，ctx 先结束时返回 false
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
