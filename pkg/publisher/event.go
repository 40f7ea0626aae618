// Package publisher 事件模型与发布管道：采集器产生的 Event 进入有界队列，
// 由单个 worker 依次写入所有已启用的 output。
package publisher

import (
	"encoding/json"
	"time"
)

// TimestampKey 事件时间字段
const TimestampKey = "@timestamp"

// AgentInfo 事件中的 agent 标识
type AgentInfo struct {
	ID       string `json:"id"`
	Hostname string `json:"hostname"`
	Version  string `json:"version"`
}

// Event 一次采集产生的一条事件，Fields 为业务字段（leader/self/store/status）
type Event struct {
	Timestamp time.Time
	Type      string
	Agent     AgentInfo
	Fields    map[string]any
}

// NewEvent 以当前时间创建事件
func NewEvent(typ string, agent AgentInfo, key string, value any) Event {
	return Event{
		Timestamp: time.Now().UTC(),
		Type:      typ,
		Agent:     agent,
		Fields:    map[string]any{key: value},
	}
}

// MarshalJSON 扁平化输出：{"@timestamp": ..., "type": ..., "agent": {...}, <fields>}
func (e Event) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(e.Fields)+3)
	for k, v := range e.Fields {
		m[k] = v
	}
	m[TimestampKey] = e.Timestamp.Format(time.RFC3339Nano)
	m["type"] = e.Type
	m["agent"] = e.Agent
	return json.Marshal(m)
}
