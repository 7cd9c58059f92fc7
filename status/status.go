package status

import (
	"encoding/json"
	"fmt"
	"strings"
)

type SessionStatus string

const (
	SessionConnecting SessionStatus = "Connecting"
	SessionActive     SessionStatus = "Active"
	SessionClosing    SessionStatus = "Closing"
	SessionClosed     SessionStatus = "Closed"
)

// String 返回会话状态文本。
func (s SessionStatus) String() string { return string(s) }

// ParseSessionStatus 将文本解析为 SessionStatus。
// 参数：
// - v: 状态文本（Connecting/Active/Closing/Closed）
// 返回：
// - SessionStatus: 解析结果
// - error: 未知状态时返回错误
func ParseSessionStatus(v string) (SessionStatus, error) {
	switch strings.TrimSpace(v) {
	case string(SessionConnecting):
		return SessionConnecting, nil
	case string(SessionActive):
		return SessionActive, nil
	case string(SessionClosing):
		return SessionClosing, nil
	case string(SessionClosed):
		return SessionClosed, nil
	default:
		return "", fmt.Errorf("unknown SessionStatus: %q", v)
	}
}

// MarshalJSON 将 SessionStatus 编码为 JSON 字符串。
func (s SessionStatus) MarshalJSON() ([]byte, error) { return json.Marshal(string(s)) }

// UnmarshalJSON 从 JSON 字符串解码为 SessionStatus。
func (s *SessionStatus) UnmarshalJSON(b []byte) error {
	var v string
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	parsed, err := ParseSessionStatus(v)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// TransportKind 使用小写协议记号，与仪器侧描述文本保持一致。
type TransportKind string

const (
	TransportTCP    TransportKind = "tcp"
	TransportUSBTMC TransportKind = "usbtmc"
)

// String 返回链路类型文本。
func (k TransportKind) String() string { return string(k) }

// ParseTransportKind 将文本解析为 TransportKind。
// 参数：
// - v: 链路类型文本（tcp/usbtmc）
// 返回：
// - TransportKind: 解析结果
// - error: 未知类型时返回错误
func ParseTransportKind(v string) (TransportKind, error) {
	switch strings.TrimSpace(v) {
	case string(TransportTCP):
		return TransportTCP, nil
	case string(TransportUSBTMC):
		return TransportUSBTMC, nil
	default:
		return "", fmt.Errorf("unknown TransportKind: %q", v)
	}
}

// MarshalJSON 将 TransportKind 编码为 JSON 字符串。
func (k TransportKind) MarshalJSON() ([]byte, error) { return json.Marshal(string(k)) }

// UnmarshalJSON 从 JSON 字符串解码为 TransportKind。
func (k *TransportKind) UnmarshalJSON(b []byte) error {
	var v string
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	parsed, err := ParseTransportKind(v)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// SinkState 使用小写记号，与状态栏描述文本保持一致。
type SinkState string

const (
	SinkDisabled SinkState = "disabled"
	SinkEnabled  SinkState = "enabled"
)

// String 返回写入端状态文本。
func (s SinkState) String() string { return string(s) }

// ParseSinkState 将文本解析为 SinkState。
// 参数：
// - v: 状态文本（disabled/enabled）
// 返回：
// - SinkState: 解析结果
// - error: 未知状态时返回错误
func ParseSinkState(v string) (SinkState, error) {
	switch strings.TrimSpace(v) {
	case string(SinkDisabled):
		return SinkDisabled, nil
	case string(SinkEnabled):
		return SinkEnabled, nil
	default:
		return "", fmt.Errorf("unknown SinkState: %q", v)
	}
}

// MarshalJSON 将 SinkState 编码为 JSON 字符串。
func (s SinkState) MarshalJSON() ([]byte, error) { return json.Marshal(string(s)) }

// UnmarshalJSON 从 JSON 字符串解码为 SinkState。
func (s *SinkState) UnmarshalJSON(b []byte) error {
	var v string
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	parsed, err := ParseSinkState(v)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
