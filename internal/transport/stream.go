package transport

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"time"
)

// Stream 一条已接入连接的消息读写端。
// 读只由 Reader 调用，写只由 Connection 的写协程调用。
type Stream interface {
	ReadMessage() ([]byte, error)
	WriteMessage([]byte) error
	SetReadDeadline(time.Time) error
	RemoteAddr() string
	Close() error
}

// NewStream 按 framing 包装 TCP 连接
func NewStream(conn net.Conn, opt Options) Stream {
	opt = opt.withDefaults()
	base := tcpStream{conn: conn, writeTimeout: opt.WriteTimeout}
	switch opt.Framing {
	case FramingLine:
		sc := bufio.NewScanner(conn)
		sc.Buffer(make([]byte, 0, min(4096, opt.MaxFrameSize)), opt.MaxFrameSize)
		return &lineStream{tcpStream: base, scanner: sc}
	case FramingLength:
		return &lengthStream{tcpStream: base, r: bufio.NewReader(conn), maxSize: opt.MaxFrameSize}
	default:
		return &rawStream{tcpStream: base, buf: make([]byte, opt.ReadBuffer)}
	}
}

type tcpStream struct {
	conn         net.Conn
	writeTimeout time.Duration
}

func (t *tcpStream) RemoteAddr() string {
	if t.conn == nil || t.conn.RemoteAddr() == nil {
		return ""
	}
	return t.conn.RemoteAddr().String()
}

func (t *tcpStream) SetReadDeadline(d time.Time) error { return t.conn.SetReadDeadline(d) }
func (t *tcpStream) Close() error                      { return t.conn.Close() }

func (t *tcpStream) write(p []byte) error {
	if t.writeTimeout > 0 {
		_ = t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout))
	}
	_, err := t.conn.Write(p)
	return err
}

// rawStream 原样转发：一次 read 的结果就是一条消息，可能被传输层拆分或合并
type rawStream struct {
	tcpStream
	buf []byte
}

func (s *rawStream) ReadMessage() ([]byte, error) {
	for {
		n, err := s.conn.Read(s.buf)
		if n > 0 {
			out := make([]byte, n)
			copy(out, s.buf[:n])
			return out, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

func (s *rawStream) WriteMessage(p []byte) error { return s.write(p) }

type lineStream struct {
	tcpStream
	scanner *bufio.Scanner
}

func (s *lineStream) ReadMessage() ([]byte, error) {
	if !s.scanner.Scan() {
		err := s.scanner.Err()
		if err == nil {
			return nil, io.EOF
		}
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, fmt.Errorf("%w: %v", ErrFrameTooLarge, err)
		}
		return nil, err
	}
	line := s.scanner.Bytes()
	out := make([]byte, len(line))
	copy(out, line)
	return out, nil
}

func (s *lineStream) WriteMessage(p []byte) error {
	buf := make([]byte, 0, len(p)+1)
	buf = append(buf, p...)
	return s.write(append(buf, '\n'))
}

type lengthStream struct {
	tcpStream
	r       *bufio.Reader
	maxSize int
}

func (s *lengthStream) ReadMessage() ([]byte, error) { return ReadFrame(s.r, s.maxSize) }

func (s *lengthStream) WriteMessage(p []byte) error {
	if s.writeTimeout > 0 {
		_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
	return WriteFrame(s.conn, p, s.maxSize)
}
