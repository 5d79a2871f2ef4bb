package chat

// Broadcaster 将一份 payload 扇出给所有接收者，失败不向调用方传播
type Broadcaster interface {
	Broadcast(payload []byte)
}
