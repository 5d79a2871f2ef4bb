package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"

	"github.com/gorilla/websocket"
)

// 传输层错误定义
var (
	ErrFrameTooLarge = NewTpError(1003, "Frame too large", "")
	ErrBadNickname   = NewTpError(1004, "Invalid nickname", "")
)

type tpError struct {
	code    int
	msg     string
	context string
}

func (e *tpError) Error() string {
	if e.context != "" {
		return fmt.Sprintf("Error %d: %s (context: %s)", e.code, e.msg, e.context)
	}
	return fmt.Sprintf("Error %d: %s", e.code, e.msg)
}

func (e *tpError) Code() int { return e.code }

func NewTpError(code int, message string, context string) *tpError {
	return &tpError{
		code:    code,
		msg:     message,
		context: context,
	}
}

// Kind 连接级失败的分类
type Kind int

const (
	KindNone       Kind = iota
	KindDisconnect      // 对端关闭、复位、本端关闭
	KindTimeout         // 读写超时
	KindProtocol        // 帧过大、握手内容非法
	KindFatal           // 其它无法识别的错误
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindDisconnect:
		return "disconnect"
	case KindTimeout:
		return "timeout"
	case KindProtocol:
		return "protocol"
	default:
		return "fatal"
	}
}

// Classify 将 I/O 错误归类，取代笼统的吞掉异常
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}
	var tpe *tpError
	if errors.As(err, &tpe) || errors.Is(err, websocket.ErrReadLimit) {
		return KindProtocol
	}
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		return KindDisconnect
	}
	if errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.EPIPE) {
		return KindDisconnect
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return KindTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return KindTimeout
	}
	return KindFatal
}

// ConnError 连接终止的类型化结果
type ConnError struct {
	Op   string // handshake|read|register
	Kind Kind
	Err  error
}

func newConnError(op string, err error) *ConnError {
	return &ConnError{Op: op, Kind: Classify(err), Err: err}
}

func (e *ConnError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Kind, e.Err)
}

func (e *ConnError) Unwrap() error { return e.Err }
