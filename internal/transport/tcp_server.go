package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/hongjun500/chat-relay/pkg/logger"
)

// TCPServer 接入循环：每个连接一个协程，握手与读循环交给 Gateway
type TCPServer struct {
	Options Options
}

func (s *TCPServer) Name() string { return Tcp }

// Start 监听 addr 并阻塞；监听失败或非临时性 accept 错误直接返回，调用方应视为致命
func (s *TCPServer) Start(ctx context.Context, addr string, gateway *Gateway) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("tcp listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln, gateway)
}

// Serve 在已有 listener 上运行接入循环，ctx 取消时关闭 listener 并等待所有连接退出
func (s *TCPServer) Serve(ctx context.Context, ln net.Listener, gateway *Gateway) error {
	logger.L().Sugar().Infow("tcp_listen", "addr", ln.Addr().String(), "framing", s.Options.withDefaults().Framing)
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	var wg sync.WaitGroup
	var backoff time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				wg.Wait()
				return ctx.Err()
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				backoff = nextBackoff(backoff)
				logger.L().Sugar().Warnw("tcp_accept_error", "err", err, "retry_in", backoff)
				time.Sleep(backoff)
				continue
			}
			_ = ln.Close()
			return fmt.Errorf("tcp accept: %w", err)
		}
		backoff = 0
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.serveConn(ctx, conn, gateway)
		}()
	}
}

func (s *TCPServer) serveConn(ctx context.Context, conn net.Conn, gateway *Gateway) {
	logger.L().Sugar().Debugw("tcp_accepted", "remote", conn.RemoteAddr().String())
	err := gateway.Serve(ctx, NewStream(conn, s.Options))
	var cerr *ConnError
	if errors.As(err, &cerr) && cerr.Kind == KindFatal {
		logger.L().Sugar().Warnw("tcp_conn_error", "remote", conn.RemoteAddr().String(), "err", err)
	}
}

func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return 5 * time.Millisecond
	}
	if d *= 2; d > time.Second {
		d = time.Second
	}
	return d
}
