package publisher

import "context"

// Output 事件输出端
type Output interface {
	Name() string
	Publish(ctx context.Context, events []Event) error
	Close() error
}
