package relay

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"sps-bridge/errors"
	"sps-bridge/log"
	"sps-bridge/measure"
	"sps-bridge/sink"
	"sps-bridge/status"
	"sps-bridge/transport"
)

// Observer 接收桥接器的状态事件，供界面层展示。
// 规则：
// - 回调在会话锁内触发，实现必须立即返回，不得阻塞
// - peer 为空串表示客户端断开
type Observer interface {
	OnValuesUpdated(field string, value float64)
	OnClientChange(peer string)
}

// NopObserver 丢弃所有事件，用于无界面运行。
type NopObserver struct{}

func (NopObserver) OnValuesUpdated(string, float64) {}
func (NopObserver) OnClientChange(string)           {}

// Bridge 在仪器链路与各命令来源之间做串行中转。
// 规则：
// - 所有命令（客户端中转与操作员手输）都在 gate 内完成写入与读回
// - tracker/collector 只在 gate 内访问，自身不加锁
// - 完整记录在 gate 内同步写入时序库，失败只记日志不中断链路
type Bridge struct {
	tr       transport.Transport
	timeout  time.Duration
	sink     sink.Writer
	observer Observer

	gate      sync.Mutex
	tracker   *measure.Tracker
	collector *measure.Collector

	records atomic.Int64
}

// NewBridge 构造 Bridge。
// 参数：
// - tr: 已建立的仪器链路
// - replyTimeout: 操作员手输查询的读回超时
// - w: 时序写入端，nil 表示停用
// - obs: 状态观察者，nil 表示丢弃事件
func NewBridge(tr transport.Transport, replyTimeout time.Duration, w sink.Writer, obs Observer) *Bridge {
	if obs == nil {
		obs = NopObserver{}
	}
	return &Bridge{
		tr:        tr,
		timeout:   replyTimeout,
		sink:      w,
		observer:  obs,
		tracker:   measure.NewTracker(),
		collector: measure.NewCollector(),
	}
}

// Exec 执行一条来自客户端的命令并把应答转发回去。
// 参数：
// - cmd: 已裁剪的非空命令
// - forward: 应答转发回调（向客户端写一条文本消息）
// 规则：
// - 命令发出后立即登记查询槽位，带 "?" 才读回应答
// - 读回不限时，空应答不转发也不出队
// - 转发成功后才配对出队并更新测量值
// 返回：
// - CodeTransportIO: 仪器链路失败，会话应当终止
// - CodeClientClosed: 转发失败（客户端已断开），槽位保留
func (b *Bridge) Exec(cmd string, forward func(reply string) error) error {
	b.gate.Lock()
	defer b.gate.Unlock()

	if err := b.tr.Write(cmd); err != nil {
		return err
	}
	b.tracker.Track(cmd)
	if !strings.Contains(cmd, "?") {
		return nil
	}
	reply, err := b.tr.ReadLine(0)
	if err != nil {
		return err
	}
	if reply == "" {
		return nil
	}
	if err := forward(reply); err != nil {
		return errors.Wrap(errors.CodeClientClosed, "forward reply to client", err)
	}
	b.resolve(reply)
	return nil
}

// Send 执行一条操作员手输的命令。
// 规则：
// - 查询读回受 timeout 限制，超时返回 CodeTransportTimeout 且槽位保留
// - 读回成功即配对出队，空应答同样消耗槽位
// - 非查询命令只写不读，返回空应答
// 返回：
// - string: 仪器应答（已裁剪，可能为空）
// - error: 链路错误或超时
func (b *Bridge) Send(cmd string) (string, error) {
	b.gate.Lock()
	defer b.gate.Unlock()

	if err := b.tr.Write(cmd); err != nil {
		return "", err
	}
	b.tracker.Track(cmd)
	if !strings.Contains(cmd, "?") {
		return "", nil
	}
	reply, err := b.tr.ReadLine(b.timeout)
	if err != nil {
		return "", err
	}
	b.resolve(reply)
	return reply, nil
}

// resolve 在 gate 内把应答与最老的查询槽位配对，并驱动展示与聚合。
func (b *Bridge) resolve(reply string) {
	field, value, ok := b.tracker.Resolve(reply)
	if !ok {
		return
	}
	b.observer.OnValuesUpdated(field, value)
	record, complete := b.collector.Add(field, value)
	if !complete {
		return
	}
	b.records.Add(1)
	if b.sink == nil {
		return
	}
	if err := b.sink.Write(context.Background(), record); err != nil {
		log.With(logrus.Fields{"status": "sink_write_error"}).WithError(err).Warn("写入时序库失败")
	}
}

// SetObserver 更换状态观察者。
// 规则：只在启动装配阶段调用，服务开始接客后不得更换。
func (b *Bridge) SetObserver(obs Observer) {
	if obs == nil {
		obs = NopObserver{}
	}
	b.observer = obs
}

// ClientChanged 通知观察者客户端连接变化（peer 为空串表示断开）。
func (b *Bridge) ClientChanged(peer string) { b.observer.OnClientChange(peer) }

// Pending 返回未配对的查询槽位数量。
func (b *Bridge) Pending() int {
	b.gate.Lock()
	defer b.gate.Unlock()
	return b.tracker.Pending()
}

// Records 返回已聚合完成的记录条数。
func (b *Bridge) Records() int64 { return b.records.Load() }

// TransportKind 返回仪器链路类型。
func (b *Bridge) TransportKind() status.TransportKind { return b.tr.Kind() }

// TransportDescribe 返回仪器链路描述（如 "tcp: 192.168.1.100:5025"）。
func (b *Bridge) TransportDescribe() string { return b.tr.Describe() }

// SinkState 返回写入端启用状态。
func (b *Bridge) SinkState() status.SinkState {
	if b.sink == nil {
		return status.SinkDisabled
	}
	return status.SinkEnabled
}

// SinkDescribe 返回写入端描述，停用时为 "disabled"。
func (b *Bridge) SinkDescribe() string {
	if b.sink == nil {
		return status.SinkDisabled.String()
	}
	return b.sink.Describe()
}
