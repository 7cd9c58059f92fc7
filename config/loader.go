package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load 从 YAML 文件读取并解析配置，并做基础校验与默认值补齐。
// 参数：
// - path: 配置文件路径
// 返回：
// - Config: 合并默认值后的配置
// - error: 读取/解析/校验失败原因
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate 校验配置字段合法性（监听端口、链路参数、写入端完整性、日志输出等）。
// 参数：
// - cfg: 待校验配置
// 返回：
// - error: 校验失败原因
func Validate(cfg Config) error {
	if cfg.Listen.Host == "" {
		return fmt.Errorf("listen.host is required")
	}
	if cfg.Listen.Port <= 0 || cfg.Listen.Port > 65535 {
		return fmt.Errorf("invalid listen.port: %d", cfg.Listen.Port)
	}
	switch cfg.Instrument.Kind {
	case "", "tcp", "usbtmc":
	default:
		return fmt.Errorf("invalid instrument.kind: %q", cfg.Instrument.Kind)
	}
	if cfg.Instrument.Kind == "tcp" && cfg.Instrument.Address != "" {
		if _, err := ParseHostPort(cfg.Instrument.Address, cfg.Instrument.TCPPort); err != nil {
			return fmt.Errorf("invalid instrument.address: %w", err)
		}
	}
	if cfg.Instrument.TCPPort <= 0 || cfg.Instrument.TCPPort > 65535 {
		return fmt.Errorf("invalid instrument.tcp_port: %d", cfg.Instrument.TCPPort)
	}
	if cfg.Instrument.DeviceGlob == "" {
		return fmt.Errorf("instrument.device_glob is required")
	}
	if cfg.Instrument.ReadBuffer.Int64() <= 0 {
		return fmt.Errorf("invalid instrument.read_buffer: %d", cfg.Instrument.ReadBuffer.Int64())
	}
	if cfg.Instrument.DialTimeout <= 0 {
		return fmt.Errorf("invalid instrument.dial_timeout: %s", cfg.Instrument.DialTimeout)
	}
	if cfg.Instrument.ReplyTimeout <= 0 {
		return fmt.Errorf("invalid instrument.reply_timeout: %s", cfg.Instrument.ReplyTimeout)
	}
	if !cfg.Sink.Complete() && !cfg.Sink.Empty() {
		return fmt.Errorf("sink config must be fully set or fully empty")
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "console"
	}
	if cfg.Log.Output == "file" && cfg.Log.FilePath == "" {
		return fmt.Errorf("logging.file_path is required when output=file")
	}
	return nil
}
