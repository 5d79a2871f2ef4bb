package redisstream

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	CodecJSON     = "json"
	CodecProtobuf = "protobuf"
)

// Codec 流内消息的编解码
type Codec interface {
	Name() string
	Marshal(m *Message) ([]byte, error)
	Unmarshal(data []byte, m *Message) error
}

func NewCodec(name string) (Codec, error) {
	switch name {
	case CodecJSON, "":
		return JSONCodec{}, nil
	case CodecProtobuf, "pb":
		return ProtobufCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown bus codec: %s", name)
	}
}

type JSONCodec struct{}

func (JSONCodec) Name() string                            { return CodecJSON }
func (JSONCodec) Marshal(m *Message) ([]byte, error)      { return json.Marshal(m) }
func (JSONCodec) Unmarshal(data []byte, m *Message) error { return json.Unmarshal(data, m) }

// ProtobufCodec 以 structpb.Struct 承载消息，无需生成代码
type ProtobufCodec struct{}

func (ProtobufCodec) Name() string { return CodecProtobuf }

func (ProtobufCodec) Marshal(m *Message) ([]byte, error) {
	s, err := structpb.NewStruct(map[string]any{
		"node":    m.Node,
		"from":    m.From,
		"payload": base64.StdEncoding.EncodeToString(m.Payload),
		"when":    float64(m.When.UnixMilli()),
	})
	if err != nil {
		return nil, err
	}
	return proto.Marshal(s)
}

func (ProtobufCodec) Unmarshal(data []byte, m *Message) error {
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return err
	}
	fields := s.GetFields()
	payload, err := base64.StdEncoding.DecodeString(fields["payload"].GetStringValue())
	if err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	m.Node = fields["node"].GetStringValue()
	m.From = fields["from"].GetStringValue()
	m.Payload = payload
	m.When = time.UnixMilli(int64(fields["when"].GetNumberValue()))
	return nil
}
