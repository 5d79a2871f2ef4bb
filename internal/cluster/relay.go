package cluster

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hongjun500/chat-relay/internal/bus/redisstream"
	"github.com/hongjun500/chat-relay/internal/chat"
	"github.com/hongjun500/chat-relay/internal/observe"
	"github.com/hongjun500/chat-relay/pkg/logger"
)

const defaultPublishQueue = 1024

// Bus 跨节点消息通道
type Bus interface {
	Publish(ctx context.Context, m *redisstream.Message) error
	Consume(ctx context.Context, handler redisstream.Handler) error
}

// Relay 在本地广播的同时把 payload 发布到总线，并把其它节点的广播回放到本地
type Relay struct {
	local          chat.Broadcaster
	bus            Bus
	node           string
	publishTimeout time.Duration
	pending        chan *redisstream.Message
}

func NewRelay(local chat.Broadcaster, bus Bus) *Relay {
	return NewRelayWithQueue(local, bus, defaultPublishQueue)
}

// NewRelayWithQueue queueSize 为待发布消息的缓冲上限
func NewRelayWithQueue(local chat.Broadcaster, bus Bus, queueSize int) *Relay {
	if queueSize <= 0 {
		queueSize = defaultPublishQueue
	}
	return &Relay{
		local:          local,
		bus:            bus,
		node:           uuid.NewString(),
		publishTimeout: 2 * time.Second,
		pending:        make(chan *redisstream.Message, queueSize),
	}
}

func (r *Relay) Node() string { return r.node }

// Broadcast 本地投递同步完成；发布只入队，队列满时丢弃并计数，从不阻塞调用方
func (r *Relay) Broadcast(payload []byte) {
	r.local.Broadcast(payload)

	select {
	case r.pending <- &redisstream.Message{Node: r.node, Payload: payload, When: time.Now()}:
	default:
		observe.IncRelayError()
		logger.L().Sugar().Warnw("relay_publish_dropped", "node", r.node, "queue", cap(r.pending))
	}
}

// Run 启动发布协程并消费总线直到 ctx 取消；本节点发布的消息会被跳过
func (r *Relay) Run(ctx context.Context) error {
	logger.L().Sugar().Infow("relay_start", "node", r.node)
	go r.publishLoop(ctx)
	return r.bus.Consume(ctx, func(_ context.Context, m *redisstream.Message) error {
		if m.Node == r.node {
			return nil
		}
		observe.IncMessage("remote")
		r.local.Broadcast(m.Payload)
		return nil
	})
}

// publishLoop 单协程按入队顺序发布
func (r *Relay) publishLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-r.pending:
			pctx, cancel := context.WithTimeout(ctx, r.publishTimeout)
			err := r.bus.Publish(pctx, m)
			cancel()
			if err != nil {
				observe.IncRelayError()
				logger.L().Sugar().Warnw("relay_publish_error", "node", r.node, "err", err)
			}
		}
	}
}
