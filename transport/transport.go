package transport

import (
	"time"

	"sps-bridge/status"
)

// Transport 抽象仪器侧的行式字节链路。
// 规则：
// - Write 自动补换行发送一条命令
// - ReadLine 读取一行应答并去除首尾空白，timeout 为 0 表示不限时
// - 同一时刻最多一个写入加可选读取序列在途（由桥接器的串行化闸保证，链路自身不加锁）
// - I/O 失败对会话是致命的，链路不做重连
type Transport interface {
	Write(line string) error
	ReadLine(timeout time.Duration) (string, error)
	Kind() status.TransportKind
	Describe() string
	Close() error
}
