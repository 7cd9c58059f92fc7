package control

import "sps-bridge/status"

// StatusPayload 是 /status 接口的响应体。
type StatusPayload struct {
	App        string          `json:"app"`
	Version    string          `json:"version"`
	UptimeSec  int64           `json:"uptime_sec"`
	CPUPercent float64         `json:"cpu_percent"`
	MemMB      float64         `json:"mem_mb"`
	Transport  TransportStatus `json:"transport"`
	Sink       SinkStatus      `json:"sink"`
	Pending    int             `json:"pending"`
	Records    int64           `json:"records"`
	Sessions   []SessionInfo   `json:"sessions"`
}

// TransportStatus 描述仪器链路。
type TransportStatus struct {
	Kind     status.TransportKind `json:"kind"`
	Describe string               `json:"describe"`
}

// SinkStatus 描述时序写入端。
type SinkStatus struct {
	State    status.SinkState `json:"state"`
	Describe string           `json:"describe"`
}

// SessionInfo 描述一个在线会话。
type SessionInfo struct {
	ID              int64                `json:"id"`
	Peer            string               `json:"peer"`
	State           status.SessionStatus `json:"state"`
	Commands        int64                `json:"commands"`
	StartedAtUnixMs int64                `json:"started_at_unix_ms"`
}
