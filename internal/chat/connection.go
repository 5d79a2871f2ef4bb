package chat

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/hongjun500/chat-relay/pkg/logger"
)

// ConnWriter 底层流的写端，由 Connection 的写协程独占
type ConnWriter interface {
	WriteMessage([]byte) error
	Close() error
}

// Connection 一个已接入的流与其昵称
type Connection struct {
	ID         string
	RemoteAddr string

	conn  ConnWriter
	state atomic.Int32

	nameMu   sync.RWMutex
	nickname string

	out       chan []byte
	closed    chan struct{}
	closeOnce sync.Once
	done      chan struct{}
}

// NewConnection 创建连接并启动写协程；bufferSize<=0 时使用 256
func NewConnection(id string, conn ConnWriter, bufferSize int) *Connection {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	c := &Connection{
		ID:     id,
		conn:   conn,
		out:    make(chan []byte, bufferSize),
		closed: make(chan struct{}),
		done:   make(chan struct{}),
	}
	go c.writeLoop()
	return c
}

func (c *Connection) writeLoop() {
	defer close(c.done)
	for {
		select {
		case <-c.closed:
			return
		case p := <-c.out:
			if err := c.conn.WriteMessage(p); err != nil {
				logger.L().Sugar().Debugw("conn_write_error", "conn", c.ID, "err", err)
				c.Close()
				return
			}
		}
	}
}

// Nickname 握手完成前为空
func (c *Connection) Nickname() string {
	c.nameMu.RLock()
	defer c.nameMu.RUnlock()
	return c.nickname
}

// SetNickname 只能成功一次，且必须在加入 Registry 之前
func (c *Connection) SetNickname(name string) error {
	if name == "" {
		return ErrEmptyNickname
	}
	c.nameMu.Lock()
	defer c.nameMu.Unlock()
	if c.nickname != "" {
		return ErrNicknameSet
	}
	c.nickname = name
	return nil
}

func (c *Connection) State() State { return State(c.state.Load()) }

// Transition 以 CAS 推进状态
func (c *Connection) Transition(from, to State) error {
	if !canTransition(from, to) || !c.state.CompareAndSwap(int32(from), int32(to)) {
		return fmt.Errorf("%w: %s -> %s (current %s)", ErrBadTransition, from, to, c.State())
	}
	return nil
}

// Send 非阻塞入队；队列满时视为写失败并关闭连接，由其 Reader 负责清理
func (c *Connection) Send(payload []byte) error {
	if c.IsClosed() {
		return ErrClosed
	}
	select {
	case c.out <- payload:
		return nil
	case <-c.closed:
		return ErrClosed
	default:
		c.Close()
		return ErrOverflow
	}
}

func (c *Connection) SendString(s string) error { return c.Send([]byte(s)) }

// Close 幂等，关闭底层流
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		c.state.Store(int32(StateClosed))
		close(c.closed)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

// IsClosed 非阻塞判断是否已关闭
func (c *Connection) IsClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// Done 写协程退出后关闭
func (c *Connection) Done() <-chan struct{} { return c.done }
