package config

import "time"

type Config struct {
	Listen     ListenConfig     `yaml:"listen"`
	Instrument InstrumentConfig `yaml:"instrument"`
	Sink       SinkConfig       `yaml:"sink"`
	Log        LogConfig        `yaml:"logging"`
}

type ListenConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// InstrumentConfig 描述仪器侧链路。
// 使用说明：
// - kind 为空时启动阶段交互选择链路类型
// - address 省略端口时补默认 tcp_port
// - device 为空时按 device_glob 枚举候选设备
type InstrumentConfig struct {
	Kind         string        `yaml:"kind"`
	Address      string        `yaml:"address"`
	TCPPort      int           `yaml:"tcp_port"`
	Device       string        `yaml:"device"`
	DeviceGlob   string        `yaml:"device_glob"`
	ReadBuffer   ByteSize      `yaml:"read_buffer"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReplyTimeout time.Duration `yaml:"reply_timeout"`
}

// SinkConfig 描述 InfluxDB 写入端。
// 规则：
// - 五项全部填写时跳过交互配置
// - 五项全部留空时启动阶段交互询问
// - 部分填写视为配置错误
type SinkConfig struct {
	URL         string `yaml:"url"`
	Org         string `yaml:"org"`
	Bucket      string `yaml:"bucket"`
	Token       string `yaml:"token"`
	Measurement string `yaml:"measurement"`
}

// Complete 报告写入端配置是否五项齐全。
func (s SinkConfig) Complete() bool {
	return s.URL != "" && s.Org != "" && s.Bucket != "" && s.Token != "" && s.Measurement != ""
}

// Empty 报告写入端配置是否完全留空。
func (s SinkConfig) Empty() bool {
	return s.URL == "" && s.Org == "" && s.Bucket == "" && s.Token == "" && s.Measurement == ""
}

type LogConfig struct {
	Level    string   `yaml:"level"`
	Format   string   `yaml:"format"`
	Output   string   `yaml:"output"`
	FilePath string   `yaml:"file_path"`
	MaxSize  ByteSize `yaml:"max_size"`
	MaxAge   int      `yaml:"max_age"`
	Compress bool     `yaml:"compress"`
}
