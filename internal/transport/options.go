package transport

import (
	"fmt"
	"time"
)

// Framing 字节流切分方式
type Framing string

const (
	FramingRaw    Framing = "raw"    // 每次 read 即一条消息，无边界
	FramingLine   Framing = "line"   // 换行分隔
	FramingLength Framing = "length" // 4 字节大端长度前缀
)

func ParseFraming(s string) (Framing, error) {
	switch Framing(s) {
	case FramingRaw, FramingLine, FramingLength:
		return Framing(s), nil
	case "":
		return FramingRaw, nil
	default:
		return "", fmt.Errorf("unknown framing: %s", s)
	}
}

// Options configures transports (shared across TCP/WS where applicable)
type Options struct {
	Framing          Framing       // TCP only; websocket messages are already framed
	ReadBuffer       int           // raw framing read size, default 1024
	MaxFrameSize     int           // line/length framing limit (bytes), default 1MB
	OutBuffer        int           // connection outbound queue size
	HandshakeTimeout time.Duration // nickname reply deadline; 0 to disable
	WriteTimeout     time.Duration // per-write deadline; 0 to disable
}

func (o Options) withDefaults() Options {
	if o.Framing == "" {
		o.Framing = FramingRaw
	}
	if o.ReadBuffer <= 0 {
		o.ReadBuffer = 1024
	}
	if o.MaxFrameSize <= 0 {
		o.MaxFrameSize = 1 << 20
	}
	if o.OutBuffer <= 0 {
		o.OutBuffer = 256
	}
	return o
}
