package chat

import (
	"errors"
	"sync"

	"github.com/samber/lo"

	"github.com/hongjun500/chat-relay/internal/observe"
	"github.com/hongjun500/chat-relay/pkg/logger"
)

// Registry 已完成握手、可接收广播的连接集合，按加入顺序排列。
// 增删持写锁，Broadcast 持读锁，因此广播不会看到半插入或半删除的条目。
type Registry struct {
	mu    sync.RWMutex
	order []*Connection
	byID  map[string]*Connection
}

func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]*Connection)}
}

// Add 发布连接；连接必须已有昵称且处于握手阶段
func (r *Registry) Add(c *Connection) error {
	if c.Nickname() == "" {
		return ErrNoNickname
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[c.ID]; exists {
		return ErrDuplicate
	}
	if err := c.Transition(StateHandshaking, StateActive); err != nil {
		return err
	}
	r.byID[c.ID] = c
	r.order = append(r.order, c)
	observe.SetOnline(len(r.order))
	return nil
}

// Remove 幂等；仅当本次调用真正移除了连接时返回 true
func (r *Registry) Remove(c *Connection) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[c.ID]; !exists {
		return false
	}
	delete(r.byID, c.ID)
	r.order = lo.Reject(r.order, func(item *Connection, _ int) bool { return item.ID == c.ID })
	observe.SetOnline(len(r.order))
	return true
}

// Broadcast 入队到每个已注册连接；单个接收者失败只记录并跳过。
// payload 会被所有接收者共享，调用方之后不得修改。
func (r *Registry) Broadcast(payload []byte) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.order {
		if err := c.Send(payload); err != nil {
			reason := "closed"
			if errors.Is(err, ErrOverflow) {
				reason = "overflow"
			}
			observe.IncDropped(reason)
			logger.L().Sugar().Debugw("broadcast_skip", "conn", c.ID, "nickname", c.Nickname(), "reason", reason)
			continue
		}
		observe.IncDelivered()
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Names 按加入顺序返回在线昵称
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Map(r.order, func(c *Connection, _ int) string { return c.Nickname() })
}

// Contains 判断连接是否仍在注册表中
func (r *Registry) Contains(c *Connection) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byID[c.ID]
	return ok
}
