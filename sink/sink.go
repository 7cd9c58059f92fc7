package sink

import "context"

// Writer 是完整测量记录的时序写入端。
// 规则：
// - Ping 仅在启动阶段调用一次，失败即整个运行期停用写入端
// - Write 只会收到六字段齐全的记录，失败由调用方记日志并继续
// - Close 在退出前冲刷缓冲并释放连接
type Writer interface {
	Ping(ctx context.Context) error
	Write(ctx context.Context, fields map[string]float64) error
	Describe() string
	Close(ctx context.Context) error
}
