package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/hongjun500/chat-relay/internal/bus/redisstream"
	"github.com/hongjun500/chat-relay/internal/chat"
	"github.com/hongjun500/chat-relay/internal/cluster"
	"github.com/hongjun500/chat-relay/internal/config"
	"github.com/hongjun500/chat-relay/internal/observe"
	"github.com/hongjun500/chat-relay/internal/transport"
	"github.com/hongjun500/chat-relay/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.L().Fatal("config_error", zap.Error(err))
	}
	logger.Configure(cfg.LogLevel, cfg.LogEncoding)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		logger.L().Fatal("server_exit", zap.Error(err))
	}
	logger.L().Info("server_stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	framing, err := transport.ParseFraming(cfg.Framing)
	if err != nil {
		return err
	}
	opt := transport.Options{
		Framing:          framing,
		ReadBuffer:       cfg.ReadBuffer,
		MaxFrameSize:     cfg.MaxFrameSize,
		OutBuffer:        cfg.OutBuffer,
		HandshakeTimeout: cfg.HandshakeTimeout,
		WriteTimeout:     cfg.WriteTimeout,
	}

	registry := chat.NewRegistry()
	var broadcaster chat.Broadcaster = registry

	if cfg.RedisAddr != "" {
		codec, err := redisstream.NewCodec(cfg.RedisEncoding)
		if err != nil {
			return err
		}
		bus := redisstream.New(cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream, codec)
		defer bus.Close()
		if err := bus.Ping(ctx); err != nil {
			logger.L().Sugar().Warnw("redis_unreachable", "addr", cfg.RedisAddr, "err", err)
		}
		relay := cluster.NewRelay(registry, bus)
		broadcaster = relay
		go func() {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.L().Sugar().Errorw("relay_stopped", "err", err)
			}
		}()
	}

	gateway := transport.NewGateway(registry, broadcaster, opt)

	if cfg.HTTPAddr != "" {
		go func() {
			logger.L().Sugar().Infow("http_listen", "addr", cfg.HTTPAddr)
			if err := observe.StartHTTP(ctx, cfg.HTTPAddr); err != nil {
				logger.L().Sugar().Errorw("http_server_error", "err", err)
			}
		}()
	}

	errCh := make(chan error, 2)
	servers := 1
	if cfg.WSAddr != "" {
		servers++
		ws := &transport.WebSocketServer{Options: opt}
		go func() { errCh <- ws.Start(ctx, cfg.WSAddr, gateway) }()
	}
	tcp := &transport.TCPServer{Options: opt}
	go func() { errCh <- tcp.Start(ctx, cfg.TCPAddr, gateway) }()

	logger.L().Sugar().Infow("chat_relay_start", "tcp", cfg.TCPAddr, "ws", cfg.WSAddr, "framing", framing)
	return waitServers(errCh, servers)
}

// waitServers 收齐 n 个监听器的退出结果；非取消类错误立即返回（致命），
// 否则等全部监听器排空连接后再返回
func waitServers(errCh <-chan error, n int) error {
	var result error
	for i := 0; i < n; i++ {
		err := <-errCh
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		if result == nil {
			result = err
		}
	}
	return result
}
