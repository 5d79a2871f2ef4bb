package transport

import (
	"encoding/binary"
	"fmt"
	"io"
)

const frameHeaderLen = 4

// WriteFrame 写入一个长度前缀帧，头部与内容合并为一次写
func WriteFrame(w io.Writer, payload []byte, maxSize int) error {
	if maxSize > 0 && len(payload) > maxSize {
		return fmt.Errorf("%w: %d", ErrFrameTooLarge, len(payload))
	}
	buf := make([]byte, frameHeaderLen+len(payload))
	binary.BigEndian.PutUint32(buf[:frameHeaderLen], uint32(len(payload)))
	copy(buf[frameHeaderLen:], payload)
	_, err := w.Write(buf)
	return err
}

// ReadFrame 读取一个长度前缀帧；长度超过 maxSize 时不读取内容直接报错
func ReadFrame(r io.Reader, maxSize int) ([]byte, error) {
	var header [frameHeaderLen]byte
	// 使用 io.ReadFull 确保读取完整的 4 字节长度
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	length := int(binary.BigEndian.Uint32(header[:]))
	if maxSize > 0 && length > maxSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, length, maxSize)
	}
	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, err
	}
	return data, nil
}
