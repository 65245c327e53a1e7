package server

// HandleMessage 解析一条入站帧并路由到对应的会话操作；无法识别的消息忽略
func (m *Manager) HandleMessage(conn ConnID, raw []byte) {
	im, err := DecodeInputMessage(raw)
	if err != nil {
		Log.Debugf("bad message: conn=%s err=%v", conn, err)
		return
	}

	switch im.Type {
	case InReady:
		m.Ready(conn)
	case InInput:
		dir, err := im.Direction()
		if err != nil {
			Log.Debugf("bad input: conn=%s err=%v", conn, err)
			return
		}
		m.Input(conn, dir)
	case InRematchRequest:
		m.Rematch(conn)
	case InPlayerLeftToMenu, InPlayerLeftLegacy:
		m.LeaveToMenu(conn)
	case InPlayAgain:
		m.PlayAgain(conn)
	case InResync:
		m.Resync(conn)
	default:
		Log.Debugf("unknown message type: conn=%s type=%s", conn, im.Type)
	}
}
