package transport

import (
	"bufio"
	"net"
	"strings"
	"sync"
	"time"

	bridgeerrors "sps-bridge/errors"
	"sps-bridge/status"
)

type tcpTransport struct {
	conn      net.Conn
	br        *bufio.Reader
	addr      string
	closeOnce sync.Once
	closeErr  error
}

// DialTCP 建立到仪器 TCP 服务端口的连接。
// 参数：
// - addr: host:port 形式的仪器地址
// - timeout: 建连超时
// 返回：
// - Transport: TCP 链路实现
// - error: 建连失败原因
func DialTCP(addr string, timeout time.Duration) (Transport, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, bridgeerrors.Wrap(bridgeerrors.CodeTransportIO, "dial instrument", err)
	}
	return &tcpTransport{
		conn: conn,
		br:   bufio.NewReader(conn),
		addr: addr,
	}, nil
}

// Write 发送一条命令（ASCII，补换行）。
func (t *tcpTransport) Write(line string) error {
	if _, err := t.conn.Write([]byte(line + "\n")); err != nil {
		return bridgeerrors.Wrap(bridgeerrors.CodeTransportIO, "tcp write", err)
	}
	return nil
}

// ReadLine 读取一行应答。
// 规则：
// - timeout > 0 时设置读截止，超时返回 CodeTransportTimeout
// - 其余读失败（含对端关闭）返回 CodeTransportIO
func (t *tcpTransport) ReadLine(timeout time.Duration) (string, error) {
	if timeout > 0 {
		_ = t.conn.SetReadDeadline(time.Now().Add(timeout))
	} else {
		_ = t.conn.SetReadDeadline(time.Time{})
	}
	raw, err := t.br.ReadString('\n')
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return "", bridgeerrors.Wrap(bridgeerrors.CodeTransportTimeout, "tcp read timeout", err)
		}
		return "", bridgeerrors.Wrap(bridgeerrors.CodeTransportIO, "tcp read", err)
	}
	return strings.TrimSpace(raw), nil
}

// Kind 返回链路类型。
func (t *tcpTransport) Kind() status.TransportKind { return status.TransportTCP }

// Describe 返回人读的链路描述。
func (t *tcpTransport) Describe() string { return "tcp: " + t.addr }

// Close 关闭连接（幂等），并解除尚未返回的读阻塞。
func (t *tcpTransport) Close() error {
	t.closeOnce.Do(func() {
		t.closeErr = t.conn.Close()
	})
	return t.closeErr
}
