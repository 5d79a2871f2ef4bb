package chat

import (
	"sync"
)

// recordWriter 记录写入内容的内存 ConnWriter
type recordWriter struct {
	mu     sync.Mutex
	msgs   []string
	closed bool
	block  chan struct{}
}

func (w *recordWriter) WriteMessage(p []byte) error {
	if w.block != nil {
		<-w.block
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	w.msgs = append(w.msgs, string(p))
	return nil
}

func (w *recordWriter) Close() error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	return nil
}

func (w *recordWriter) Messages() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.msgs...)
}

func (w *recordWriter) count(msg string) int {
	n := 0
	for _, m := range w.Messages() {
		if m == msg {
			n++
		}
	}
	return n
}

// activeConn 创建一条已握手的连接
func activeConn(id, name string, buf int) (*Connection, *recordWriter) {
	w := &recordWriter{}
	c := NewConnection(id, w, buf)
	_ = c.Transition(StateConnecting, StateHandshaking)
	_ = c.SetNickname(name)
	return c, w
}
