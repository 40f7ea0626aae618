package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"

	"github.com/etcdbeat/pkg/config"
)

// FileOutput NDJSON 文件输出，按时间/大小切割
type FileOutput struct {
	mu     sync.Mutex
	writer *rotatelogs.RotateLogs
}

// NewFileOutput 文件名形如 <path>/<filename>-20240101.ndjson
func NewFileOutput(cfg config.FileOutputConfig) (*FileOutput, error) {
	if err := os.MkdirAll(cfg.Path, 0755); err != nil {
		return nil, fmt.Errorf("create output dir %s: %w", cfg.Path, err)
	}
	w, err := rotatelogs.New(
		filepath.Join(cfg.Path, cfg.Filename+"-%Y%m%d.ndjson"),
		rotatelogs.WithRotationTime(cfg.RotateEvery),
		rotatelogs.WithMaxAge(cfg.MaxAge),
		rotatelogs.WithRotationSize(int64(cfg.MaxSize)*1024*1024),
		rotatelogs.WithClock(rotatelogs.UTC),
	)
	if err != nil {
		return nil, fmt.Errorf("create output file writer: %w", err)
	}
	return &FileOutput{writer: w}, nil
}

func (f *FileOutput) Name() string { return "file" }

func (f *FileOutput) Publish(_ context.Context, events []Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, e := range events {
		b, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encode event: %w", err)
		}
		if _, err := f.writer.Write(append(b, '\n')); err != nil {
			return fmt.Errorf("write event: %w", err)
		}
	}
	return nil
}

// CurrentFile 当前写入的文件（首次写入前为空）
func (f *FileOutput) CurrentFile() string {
	return f.writer.CurrentFileName()
}

func (f *FileOutput) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writer.Close()
}

