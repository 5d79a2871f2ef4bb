package transport

import (
	"context"
)

const (
	Tcp       = "tcp"
	WebSocket = "websocket"
)

// Transport 统一的传输层接口
// 负责特定协议(TCP/WebSocket)的接入，会话语义交给 Gateway
type Transport interface {
	Name() string
	Start(ctx context.Context, addr string, gateway *Gateway) error
}
