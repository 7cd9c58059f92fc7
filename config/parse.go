package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ParseHostPort 规整仪器地址（形如 "192.168.1.100" 或 "192.168.1.100:5025"）。
// 参数：
// - addr: 地址文本，可省略端口
// - defaultPort: 省略端口时补的默认端口
// 返回：
// - string: host:port 形式的地址
// - error: 解析失败原因
func ParseHostPort(addr string, defaultPort int) (string, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "", fmt.Errorf("empty instrument address")
	}
	if !strings.Contains(addr, ":") {
		return net.JoinHostPort(addr, strconv.Itoa(defaultPort)), nil
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "", fmt.Errorf("invalid instrument address: %q", addr)
	}
	n, err := strconv.Atoi(port)
	if err != nil || n <= 0 || n > 65535 {
		return "", fmt.Errorf("invalid instrument port: %q", port)
	}
	return net.JoinHostPort(host, port), nil
}

type ByteSize int64

// Int64 返回字节数的 int64 表达。
func (b ByteSize) Int64() int64 { return int64(b) }

// UnmarshalYAML 支持从 YAML 中解析 ByteSize（如 4KB、10MB、4096B）。
// 参数：
// - value: YAML 节点
// 返回：
// - error: 解析失败原因
func (b *ByteSize) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		*b = 0
		return nil
	}
	v := strings.TrimSpace(value.Value)
	if v == "" {
		*b = 0
		return nil
	}
	n, err := parseByteSize(v)
	if err != nil {
		return err
	}
	*b = ByteSize(n)
	return nil
}

// parseByteSize 解析形如 "4KB"/"1.5MB" 的字节数文本。
// 参数：
// - s: 字节数文本
// 返回：
// - int64: 字节数
// - error: 解析失败原因
func parseByteSize(s string) (int64, error) {
	s = strings.TrimSpace(strings.ToUpper(s))
	mult := int64(1)
	switch {
	case strings.HasSuffix(s, "KB"):
		mult = 1024
		s = strings.TrimSuffix(s, "KB")
	case strings.HasSuffix(s, "MB"):
		mult = 1024 * 1024
		s = strings.TrimSuffix(s, "MB")
	case strings.HasSuffix(s, "GB"):
		mult = 1024 * 1024 * 1024
		s = strings.TrimSuffix(s, "GB")
	case strings.HasSuffix(s, "B"):
		mult = 1
		s = strings.TrimSuffix(s, "B")
	}
	s = strings.TrimSpace(s)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size: %q", s)
	}
	if f < 0 {
		return 0, fmt.Errorf("invalid byte size: %q", s)
	}
	return int64(f * float64(mult)), nil
}

// DefaultConfig 返回一份可用的默认配置（用于未提供配置文件或作为缺省值合并）。
func DefaultConfig() Config {
	return Config{
		Listen: ListenConfig{
			Host: "localhost",
			Port: 8769,
		},
		Instrument: InstrumentConfig{
			Kind:         "",
			Address:      "",
			TCPPort:      5025,
			Device:       "",
			DeviceGlob:   "/dev/usbtmc*",
			ReadBuffer:   ByteSize(4096),
			DialTimeout:  5 * time.Second,
			ReplyTimeout: 2 * time.Second,
		},
		Sink: SinkConfig{},
		Log: LogConfig{
			Level:    "info",
			Format:   "text",
			Output:   "console",
			FilePath: "logs/sps-bridge.log",
			MaxSize:  ByteSize(10 * 1024 * 1024),
			MaxAge:   7,
			Compress: false,
		},
	}
}
