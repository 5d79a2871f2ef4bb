package redisstream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCodecs_PreserveBinaryPayload(t *testing.T) {
	when := time.UnixMilli(time.Now().UnixMilli())
	in := &Message{Node: "n1", From: "alice", Payload: []byte{0, 'h', 'i', 0xff}, When: when}

	for _, name := range []string{CodecJSON, CodecProtobuf} {
		t.Run(name, func(t *testing.T) {
			codec, err := NewCodec(name)
			require.NoError(t, err)
			require.Equal(t, name, codec.Name())

			data, err := codec.Marshal(in)
			require.NoError(t, err)
			var out Message
			require.NoError(t, codec.Unmarshal(data, &out))
			require.Equal(t, in.Node, out.Node)
			require.Equal(t, in.From, out.From)
			require.Equal(t, in.Payload, out.Payload)
			require.True(t, in.When.Equal(out.When))
		})
	}
}

func TestNewCodec_Unknown(t *testing.T) {
	_, err := NewCodec("xml")
	require.Error(t, err)
}

func TestProtobufCodec_RejectsGarbage(t *testing.T) {
	var m Message
	require.Error(t, ProtobufCodec{}.Unmarshal([]byte{0xff, 0xff, 0xff}, &m))
}
