package beater

import (
	"fmt"
	"sync/atomic"
)

// State 进程生命周期状态
type State int32

const (
	StateInitializing State = iota
	StateRunning
	StateTerminating
	StateExited
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateRunning:
		return "running"
	case StateTerminating:
		return "terminating"
	case StateExited:
		return "exited"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// 只允许 Initializing → Running → Terminating → Exited
var transitions = map[State]State{
	StateInitializing: StateRunning,
	StateRunning:      StateTerminating,
	StateTerminating:  StateExited,
}

type stateMachine struct {
	v atomic.Int32
}

func (m *stateMachine) load() State { return State(m.v.Load()) }

// advance 迁移到 to，非法迁移返回错误且状态不变
func (m *stateMachine) advance(to State) error {
	from := m.load()
	if transitions[from] != to || !m.v.CompareAndSwap(int32(from), int32(to)) {
		return fmt.Errorf("invalid state transition %s -> %s", from, to)
	}
	return nil
}
