package chat

// JoinAnnouncement 新连接完成握手后广播的文本
func JoinAnnouncement(nickname string) []byte {
	return []byte(nickname + " has joined in room")
}

// LeaveAnnouncement 连接断开后广播的文本
func LeaveAnnouncement(nickname string) []byte {
	return []byte(nickname + " left !!!")
}
