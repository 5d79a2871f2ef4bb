package transport

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hongjun500/chat-relay/pkg/logger"
)

// wsStream 一条 websocket 连接；每个数据帧即一条消息
type wsStream struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
}

func (w *wsStream) ReadMessage() ([]byte, error) {
	for {
		mt, data, err := w.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if mt == websocket.TextMessage || mt == websocket.BinaryMessage {
			return data, nil
		}
	}
}

func (w *wsStream) WriteMessage(p []byte) error {
	if w.writeTimeout > 0 {
		_ = w.conn.SetWriteDeadline(time.Now().Add(w.writeTimeout))
	}
	return w.conn.WriteMessage(websocket.TextMessage, p)
}

func (w *wsStream) SetReadDeadline(d time.Time) error { return w.conn.SetReadDeadline(d) }

func (w *wsStream) RemoteAddr() string { return w.conn.RemoteAddr().String() }

func (w *wsStream) Close() error {
	_ = w.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return w.conn.Close()
}

// WebSocketServer 浏览器客户端接入，与 TCP 客户端共享同一个注册表
type WebSocketServer struct {
	Options Options
	Path    string // WebSocket endpoint path, defaults to "/ws"
}

func (ws *WebSocketServer) Name() string {
	return WebSocket
}

func (ws *WebSocketServer) Start(ctx context.Context, addr string, gateway *Gateway) error {
	if ws.Path == "" {
		ws.Path = "/ws"
	}
	mux := http.NewServeMux()
	mux.Handle(ws.Path, ws.Handler(ctx, gateway))

	logger.L().Sugar().Infow("websocket_listen", "addr", addr, "path", ws.Path)

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}

// Handler 升级请求并在请求协程内运行会话
func (ws *WebSocketServer) Handler(ctx context.Context, gateway *Gateway) http.Handler {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.L().Sugar().Warnw("ws_upgrade_error", "remote", r.RemoteAddr, "err", err)
			return
		}
		if limit := ws.Options.withDefaults().MaxFrameSize; limit > 0 {
			conn.SetReadLimit(int64(limit))
		}
		stream := &wsStream{conn: conn, writeTimeout: ws.Options.WriteTimeout}
		err = gateway.Serve(ctx, stream)
		var cerr *ConnError
		if errors.As(err, &cerr) && cerr.Kind == KindFatal {
			logger.L().Sugar().Warnw("ws_conn_error", "remote", r.RemoteAddr, "err", err)
		}
	})
}
