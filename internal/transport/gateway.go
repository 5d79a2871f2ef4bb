package transport

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/hongjun500/chat-relay/internal/chat"
	"github.com/hongjun500/chat-relay/internal/observe"
	"github.com/hongjun500/chat-relay/pkg/logger"
)

const (
	// NickPrompt 服务端发出的昵称请求
	NickPrompt = "NICK"
	// Confirmation 握手成功后发给新连接
	Confirmation = "Connected !!!"
)

// Gateway 传输层与聊天注册表之间的桥梁：握手、注册、读循环与离开清理
type Gateway struct {
	registry     *chat.Registry
	broadcaster  chat.Broadcaster
	opt          Options
	validate     *validator.Validate
	nicknameRule string
}

// NewGateway broadcaster 为 nil 时直接使用 registry 广播
func NewGateway(registry *chat.Registry, broadcaster chat.Broadcaster, opt Options) *Gateway {
	if broadcaster == nil {
		broadcaster = registry
	}
	opt = opt.withDefaults()
	return &Gateway{
		registry:     registry,
		broadcaster:  broadcaster,
		opt:          opt,
		validate:     validator.New(),
		// 昵称与一次 raw 读取等长，不超过读缓冲
		nicknameRule: fmt.Sprintf("required,printascii,max=%d", opt.ReadBuffer),
	}
}

func (g *Gateway) Registry() *chat.Registry { return g.registry }

// Serve 接管一条已接入的流直到其终止，返回终止原因。
// 握手失败的流不会进入注册表，也不会触发任何广播。
func (g *Gateway) Serve(ctx context.Context, s Stream) error {
	c := chat.NewConnection(uuid.NewString(), s, g.opt.OutBuffer)
	c.RemoteAddr = s.RemoteAddr()
	stop := context.AfterFunc(ctx, c.Close)
	defer stop()

	name, err := g.handshake(c, s)
	if err != nil {
		c.Close()
		observe.IncHandshakeFailure(err.Kind.String())
		logger.L().Sugar().Infow("handshake_failed", "conn", c.ID, "remote", c.RemoteAddr, "err", err)
		return err
	}
	if err := c.SetNickname(name); err != nil {
		c.Close()
		return newConnError("handshake", err)
	}
	if err := g.registry.Add(c); err != nil {
		c.Close()
		return newConnError("register", err)
	}
	logger.L().Sugar().Infow("user_joined", "conn", c.ID, "nickname", name, "remote", c.RemoteAddr, "online", g.registry.Names())

	g.announce(chat.JoinAnnouncement(name))
	_ = c.SendString(Confirmation)

	return g.readLoop(c, s)
}

func (g *Gateway) handshake(c *chat.Connection, s Stream) (string, *ConnError) {
	if err := c.Transition(chat.StateConnecting, chat.StateHandshaking); err != nil {
		return "", newConnError("handshake", err)
	}
	if err := c.SendString(NickPrompt); err != nil {
		return "", newConnError("handshake", err)
	}
	if g.opt.HandshakeTimeout > 0 {
		_ = s.SetReadDeadline(time.Now().Add(g.opt.HandshakeTimeout))
	}
	raw, err := s.ReadMessage()
	if err != nil {
		return "", newConnError("handshake", err)
	}
	_ = s.SetReadDeadline(time.Time{})

	name := strings.TrimSpace(string(raw))
	if err := g.validate.Var(name, g.nicknameRule); err != nil {
		return "", newConnError("handshake", fmt.Errorf("%w: %q", ErrBadNickname, name))
	}
	return name, nil
}

// readLoop 每次读到的内容原样广播；读失败时移除、关闭并至多一次广播离开
func (g *Gateway) readLoop(c *chat.Connection, s Stream) error {
	name := c.Nickname()
	for {
		payload, err := s.ReadMessage()
		if err != nil {
			cerr := newConnError("read", err)
			removed := g.registry.Remove(c)
			c.Close()
			if removed {
				g.announce(chat.LeaveAnnouncement(name))
			}
			observe.IncDisconnect(cerr.Kind.String())
			logger.L().Sugar().Infow("user_left", "conn", c.ID, "nickname", name, "kind", cerr.Kind.String(), "err", err, "online", g.registry.Len())
			return cerr
		}
		if len(payload) == 0 {
			continue
		}
		observe.IncMessage("local")
		g.broadcaster.Broadcast(payload)
	}
}

func (g *Gateway) announce(payload []byte) {
	observe.IncMessage("system")
	g.broadcaster.Broadcast(payload)
}
