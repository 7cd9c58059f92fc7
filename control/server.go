package control

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"sps-bridge/config"
	"sps-bridge/errors"
	"sps-bridge/log"
	"sps-bridge/relay"
)

// Server 对外提供 WebSocket 中转入口与 /status 状态接口。
// 规则：
// - "/" 升级为 WebSocket，每个连接一个独立会话 goroutine
// - 会话之间共享同一个 Bridge，命令串行依靠 Bridge 的会话锁
// - Stop 先关闭全部会话再关停 HTTP 服务
type Server struct {
	listen  config.ListenConfig
	bridge  *relay.Bridge
	version string
	started time.Time

	upgrader websocket.Upgrader
	httpSrv  *http.Server
	ln       net.Listener

	mu       sync.Mutex
	sessions map[int64]*relay.Session
	nextID   atomic.Int64
	wg       sync.WaitGroup
	host     hostSampler
}

// NewServer 构造服务。
// 参数：
// - listen: 监听地址配置
// - b: 共享的命令中转桥
// - version: 程序版本（仅用于状态接口展示）
func NewServer(listen config.ListenConfig, b *relay.Bridge, version string) *Server {
	return &Server{
		listen:  listen,
		bridge:  b,
		version: version,
		started: time.Now(),
		// 实验室客户端多为脚本直连，不做 Origin 校验
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		sessions: map[int64]*relay.Session{},
	}
}

// Start 开始监听并后台运行 HTTP 服务。
func (s *Server) Start() error {
	addr := net.JoinHostPort(s.listen.Host, strconv.Itoa(s.listen.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrap(errors.CodeInternal, "listen "+addr, err)
	}
	s.ln = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRelay)
	mux.HandleFunc("/status", s.handleStatus)
	s.httpSrv = &http.Server{Handler: mux}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.With(logrus.Fields{"status": "serve_error"}).WithError(err).Error("WebSocket 服务异常退出")
		}
	}()
	log.With(logrus.Fields{"addr": ln.Addr().String(), "status": "listen_ok"}).Info("WebSocket 服务已启动")
	return nil
}

// Addr 返回实际监听地址（端口配置为 0 时用于取回随机端口）。
func (s *Server) Addr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Sessions 返回当前在线会话数量。
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Stop 关闭全部会话并停止 HTTP 服务。
// 规则：会话可能阻塞在仪器读回上，等待会话退出受 ctx 限制；超时放弃等待并返回错误，
// 残余 goroutine 由调用方关闭仪器链路解除阻塞。
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	for _, sess := range s.sessions {
		_ = sess.Close()
	}
	s.mu.Unlock()

	var err error
	if s.httpSrv != nil {
		err = s.httpSrv.Shutdown(ctx)
	}
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		log.With(logrus.Fields{"status": "server_stop"}).Info("WebSocket 服务已停止")
	case <-ctx.Done():
		log.With(logrus.Fields{"status": "server_stop_timeout"}).Warn("会话未在期限内退出，放弃等待")
		if err == nil {
			err = errors.Wrap(errors.CodeInternal, "drain sessions", ctx.Err())
		}
	}
	return err
}

// handleRelay 把 "/" 的 HTTP 请求升级为 WebSocket 会话。
func (s *Server) handleRelay(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.With(logrus.Fields{"status": "upgrade_error"}).WithError(err).Warn("WebSocket 升级失败")
		return
	}
	sess := relay.NewSession(s.nextID.Add(1), conn, s.bridge)
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		sess.Run()
		s.mu.Lock()
		delete(s.sessions, sess.ID)
		s.mu.Unlock()
	}()
}

// handleStatus 输出运行状态 JSON。
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.snapshot()); err != nil {
		log.L().WithError(err).Warn("状态响应编码失败")
	}
}

// snapshot 采集一份当前状态。
func (s *Server) snapshot() StatusPayload {
	s.mu.Lock()
	infos := make([]SessionInfo, 0, len(s.sessions))
	for _, sess := range s.sessions {
		infos = append(infos, SessionInfo{
			ID:              sess.ID,
			Peer:            sess.Peer,
			State:           sess.State(),
			Commands:        sess.Commands(),
			StartedAtUnixMs: sess.Started.UnixMilli(),
		})
	}
	s.mu.Unlock()
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })

	cpu, mem := s.host.sample()
	return StatusPayload{
		App:        "sps-bridge",
		Version:    s.version,
		UptimeSec:  int64(time.Since(s.started).Seconds()),
		CPUPercent: cpu,
		MemMB:      mem,
		Transport:  TransportStatus{Kind: s.bridge.TransportKind(), Describe: s.bridge.TransportDescribe()},
		Sink:       SinkStatus{State: s.bridge.SinkState(), Describe: s.bridge.SinkDescribe()},
		Pending:    s.bridge.Pending(),
		Records:    s.bridge.Records(),
		Sessions:   infos,
	}
}
