package publisher

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"
)

// ConsoleOutput 每个事件一行 JSON 写到 stdout
type ConsoleOutput struct {
	mu     sync.Mutex
	w      io.Writer
	pretty bool
}

func NewConsoleOutput(w io.Writer, pretty bool) *ConsoleOutput {
	if w == nil {
		w = os.Stdout
	}
	return &ConsoleOutput{w: w, pretty: pretty}
}

func (c *ConsoleOutput) Name() string { return "console" }

func (c *ConsoleOutput) Publish(_ context.Context, events []Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	enc := json.NewEncoder(c.w)
	if c.pretty {
		enc.SetIndent("", "  ")
	}
	for _, e := range events {
		if err := enc.Encode(e); err != nil {
			return err
		}
	}
	return nil
}

func (c *ConsoleOutput) Close() error { return nil }
