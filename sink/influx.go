package sink

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/domain"

	"sps-bridge/config"
	"sps-bridge/errors"
)

// InfluxWriter 把完整测量记录写入 InfluxDB v2。
// 规则：
// - measurement 来自配置，构造后不再变化
// - 写入使用阻塞 API，由调用方在会话锁内串行调用
type InfluxWriter struct {
	client      influxdb2.Client
	write       api.WriteAPIBlocking
	measurement string
}

var _ Writer = (*InfluxWriter)(nil)

// NewInflux 按写入端配置构造 InfluxWriter。
// 参数：
// - cfg: 五项齐全的写入端配置（URL/Org/Bucket/Token/Measurement）
func NewInflux(cfg config.SinkConfig) *InfluxWriter {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &InfluxWriter{
		client:      client,
		write:       client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		measurement: cfg.Measurement,
	}
}

// Ping 执行一次健康检查。
// 返回：
// - nil: 服务端状态为 pass
// - CodeSinkUnhealthy: 请求失败或状态非 pass
func (w *InfluxWriter) Ping(ctx context.Context) error {
	health, err := w.client.Health(ctx)
	if err != nil {
		return errors.Wrap(errors.CodeSinkUnhealthy, "influxdb health check failed", err)
	}
	if health.Status != domain.HealthCheckStatusPass {
		detail := string(health.Status)
		if health.Message != nil && *health.Message != "" {
			detail = fmt.Sprintf("%s (%s)", health.Status, *health.Message)
		}
		return errors.New(errors.CodeSinkUnhealthy, "influxdb health: "+detail)
	}
	return nil
}

// Write 将一条六字段记录写为单个数据点，时间戳取当前时刻。
func (w *InfluxWriter) Write(ctx context.Context, fields map[string]float64) error {
	values := make(map[string]interface{}, len(fields))
	for name, v := range fields {
		values[name] = v
	}
	point := influxdb2.NewPoint(w.measurement, nil, values, time.Now())
	if err := w.write.WritePoint(ctx, point); err != nil {
		return errors.Wrap(errors.CodeSinkWrite, "influxdb write point", err)
	}
	return nil
}

// Describe 返回界面用的写入端描述。
func (w *InfluxWriter) Describe() string {
	return fmt.Sprintf("enabled (%s)", w.measurement)
}

// Close 冲刷缓冲并关闭客户端。
func (w *InfluxWriter) Close(ctx context.Context) error {
	err := w.write.Flush(ctx)
	w.client.Close()
	if err != nil {
		return errors.Wrap(errors.CodeSinkWrite, "influxdb flush", err)
	}
	return nil
}
