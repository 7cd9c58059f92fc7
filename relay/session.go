package relay

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"sps-bridge/errors"
	"sps-bridge/log"
	"sps-bridge/status"
)

// Session 承载一个 WebSocket 客户端的中转会话。
// 状态机：Connecting -> Active -> (Closing ->) Closed。
// 规则：
// - 仪器链路失败先进入 Closing 再关闭连接
// - 客户端自行断开直接进入 Closed
type Session struct {
	ID      int64
	Peer    string
	Started time.Time

	conn   *websocket.Conn
	bridge *Bridge

	commands atomic.Int64

	mu    sync.Mutex
	state status.SessionStatus
}

// NewSession 构造会话，初始状态为 Connecting。
func NewSession(id int64, conn *websocket.Conn, b *Bridge) *Session {
	return &Session{
		ID:      id,
		Peer:    conn.RemoteAddr().String(),
		Started: time.Now(),
		conn:    conn,
		bridge:  b,
		state:   status.SessionConnecting,
	}
}

// State 返回当前会话状态。
func (s *Session) State() status.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Commands 返回本会话已派发的命令条数。
func (s *Session) Commands() int64 { return s.commands.Load() }

func (s *Session) setState(st status.SessionStatus) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Close 主动关闭底层连接，促使 Run 尽快返回。
func (s *Session) Close() error { return s.conn.Close() }

// Run 阻塞运行会话读循环，直至客户端断开或仪器链路失败。
// 规则：
// - 空白消息跳过，不触碰仪器链路
// - 每条命令整体交给 Bridge.Exec，应答按文本帧回发
// - 返回前必须广播一次断开事件并关闭连接
func (s *Session) Run() {
	entry := log.With(logrus.Fields{"session": s.ID, "peer": s.Peer})

	s.setState(status.SessionActive)
	s.bridge.ClientChanged(s.Peer)
	entry.WithField("status", "client_connect").Info("客户端已连接")

	defer func() {
		_ = s.conn.Close()
		s.bridge.ClientChanged("")
		entry.WithField("status", "client_disconnect").Info("客户端已断开")
		s.setState(status.SessionClosed)
	}()

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		cmd := strings.TrimSpace(string(data))
		if cmd == "" {
			continue
		}
		s.commands.Add(1)
		err = s.bridge.Exec(cmd, func(reply string) error {
			return s.conn.WriteMessage(websocket.TextMessage, []byte(reply))
		})
		if err == nil {
			continue
		}
		if errors.Code(err) == errors.CodeClientClosed {
			entry.WithError(err).WithField("status", "forward_error").Debug("应答转发失败，客户端已离开")
			return
		}
		s.setState(status.SessionClosing)
		entry.WithError(err).WithFields(logrus.Fields{"cmd": cmd, "status": "transport_fatal"}).Error("仪器链路失败，终止会话")
		return
	}
}
