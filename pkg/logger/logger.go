package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/etcdbeat/pkg/config"
	"github.com/etcdbeat/pkg/goid"
)

type Logger = zap.Logger

// FilePattern 日志文件名（按天切割）
const FilePattern = "etcdbeat-%Y%m%d.log"

var (
	baseLogger    = zap.NewNop()
	defaultFields = struct {
		Collector string
	}{}
	loggerInitialized bool
	mu                sync.RWMutex
)

// Init 初始化全局日志：控制台彩色输出 + JSON 文件（file-rotatelogs 切割）。
// 可以重复调用，后一次覆盖前一次。
func Init(cfg *config.ZapLogConfig) error {
	level := parseLevel(cfg.Level)

	dir := config.LogDir(cfg.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create log dir %s: %w", dir, err)
	}

	writer, err := rotatelogs.New(
		filepath.Join(dir, FilePattern),
		rotatelogs.WithMaxAge(time.Duration(cfg.MaxAge)*24*time.Hour),
		rotatelogs.WithRotationTime(24*time.Hour),
		rotatelogs.WithRotationSize(int64(cfg.MaxSize)*1024*1024),
	)
	if err != nil {
		return fmt.Errorf("create log writer: %w", err)
	}

	core := zapcore.NewTee(
		zapcore.NewCore(stdoutEncoder(cfg.Format), zapcore.AddSync(os.Stdout), level),
		zapcore.NewCore(fileEncoder(), zapcore.AddSync(writer), level),
	)

	mu.Lock()
	baseLogger = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(2), zap.AddStacktrace(zapcore.ErrorLevel))
	loggerInitialized = true
	mu.Unlock()
	return nil
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func stdoutEncoder(format string) zapcore.Encoder {
	if format == "json" {
		return fileEncoder()
	}

	// 控制台彩色时间
	customTimeEncoderConsole := func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(fmt.Sprintf("\033[34m%s\033[0m", t.Format("2006-01-02 15:04:05.000 -07:00")))
	}

	coloredLevelEncoder := func(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		var levelStr string
		switch level {
		case zapcore.DebugLevel:
			levelStr = "\033[36mDEBUG\033[0m"
		case zapcore.InfoLevel:
			levelStr = "\033[32mINFO \033[0m"
		case zapcore.WarnLevel:
			levelStr = "\033[33mWARN \033[0m"
		case zapcore.ErrorLevel:
			levelStr = "\033[31mERROR\033[0m"
		case zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
			levelStr = "\033[35m" + level.CapitalString() + "\033[0m"
		default:
			levelStr = "UNK  "
		}
		enc.AppendString(levelStr)
	}

	consoleEncoderCfg := zap.NewDevelopmentEncoderConfig()
	consoleEncoderCfg.ConsoleSeparator = " "
	consoleEncoderCfg.EncodeLevel = coloredLevelEncoder
	consoleEncoderCfg.EncodeTime = customTimeEncoderConsole

	// Caller 两级路径
	consoleEncoderCfg.EncodeCaller = func(c zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
		rel := filepath.Join(filepath.Base(filepath.Dir(c.File)), filepath.Base(c.File))
		enc.AppendString(fmt.Sprintf("%s:%d", rel, c.Line))
	}
	return zapcore.NewConsoleEncoder(consoleEncoderCfg)
}

// JSON 日志纯文本时间
func fileEncoder() zapcore.Encoder {
	jsonCfg := zap.NewProductionEncoderConfig()
	jsonCfg.TimeKey = "timestamp"
	jsonCfg.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.Format("2006-01-02 15:04:05.000 -07:00"))
	}
	jsonCfg.EncodeLevel = zapcore.LowercaseLevelEncoder
	return zapcore.NewJSONEncoder(jsonCfg)
}

// SetDefaultCollector 设置默认 collector 字段（主程序相关日志自动使用）
func SetDefaultCollector(collector string) {
	mu.Lock()
	defer mu.Unlock()
	defaultFields.Collector = collector
}

func GetDefaultCollector() string {
	mu.RLock()
	defer mu.RUnlock()
	return defaultFields.Collector
}

func log(level zapcore.Level, msg string, fields ...zapcore.Field) {
	mu.RLock()
	l := baseLogger
	collector := defaultFields.Collector
	mu.RUnlock()

	// 显式传入的 collector 字段优先
	for _, f := range fields {
		if f.Key == "collector" && f.Type == zapcore.StringType {
			collector = f.String
		}
	}
	msgWithFields := fmt.Sprintf("collector=%s goid=%s %s", collector, goid.String(), msg)

	if ce := l.Check(level, msgWithFields); ce != nil {
		ce.Write(fields...)
	}
}

func Debug(msg string, fields ...zapcore.Field) {
	log(zap.DebugLevel, msg, fields...)
}
func Info(msg string, fields ...zapcore.Field) {
	log(zap.InfoLevel, msg, fields...)
}
func Warn(msg string, fields ...zapcore.Field) {
	log(zap.WarnLevel, msg, fields...)
}
func Error(msg string, fields ...zapcore.Field) {
	log(zap.ErrorLevel, msg, fields...)
}
func Panic(msg string, fields ...zapcore.Field) {
	log(zap.PanicLevel, msg, fields...)
}
func Fatal(msg string, fields ...zapcore.Field) {
	log(zap.FatalLevel, msg, fields...)
}

// Sync 刷盘；stdout 在部分系统上 Sync 会返回 EINVAL/EBADF，忽略
func Sync() error {
	mu.RLock()
	l, ok := baseLogger, loggerInitialized
	mu.RUnlock()
	if !ok {
		return nil
	}
	if err := l.Sync(); err != nil && !isStdoutSyncErr(err) {
		return err
	}
	return nil
}

func isStdoutSyncErr(err error) bool {
	s := err.Error()
	return strings.Contains(s, "/dev/stdout") &&
		(strings.Contains(s, "invalid argument") || strings.Contains(s, "bad file descriptor") || strings.Contains(s, "inappropriate ioctl"))
}

// GetLogger 返回底层 zap.Logger（未初始化时为 Nop）
func GetLogger() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return baseLogger.WithOptions(zap.AddCallerSkip(-2))
}
