package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindNone},
		{"eof", io.EOF, KindDisconnect},
		{"wrapped eof", fmt.Errorf("read: %w", io.EOF), KindDisconnect},
		{"closed", net.ErrClosed, KindDisconnect},
		{"reset", &net.OpError{Op: "read", Err: os.NewSyscallError("read", syscall.ECONNRESET)}, KindDisconnect},
		{"broken pipe", syscall.EPIPE, KindDisconnect},
		{"ws close", &websocket.CloseError{Code: websocket.CloseGoingAway}, KindDisconnect},
		{"deadline", os.ErrDeadlineExceeded, KindTimeout},
		{"net timeout", timeoutErr{}, KindTimeout},
		{"frame too large", fmt.Errorf("%w: 9", ErrFrameTooLarge), KindProtocol},
		{"bad nickname", ErrBadNickname, KindProtocol},
		{"ws read limit", websocket.ErrReadLimit, KindProtocol},
		{"other", errors.New("boom"), KindFatal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Classify(tc.err))
		})
	}
}

func TestConnError_Unwrap(t *testing.T) {
	err := newConnError("read", io.EOF)
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, KindDisconnect, err.Kind)
	require.Contains(t, err.Error(), "read disconnect")
}

func TestTpError_Code(t *testing.T) {
	require.Equal(t, 1003, ErrFrameTooLarge.Code())
	require.Equal(t, "Error 1004: Invalid nickname", ErrBadNickname.Error())
	require.Contains(t, NewTpError(1, "x", "ctx").Error(), "context: ctx")
}
