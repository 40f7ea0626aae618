package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var valid = validator.New()

// EnvPrefix 环境变量前缀 (ETCDBEAT_INPUT_HOST -> input.host)
const EnvPrefix = "ETCDBEAT"

// Config 全局配置结构体（聚合所有核心模块）
type Config struct {
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Input   InputConfig   `yaml:"input" mapstructure:"input"`
	Output  OutputConfig  `yaml:"output" mapstructure:"output"`
	Monitor MonitorConfig `yaml:"monitor" mapstructure:"monitor"`
	Log     ZapLogConfig  `yaml:"log" mapstructure:"log"`
}

// ServerConfig HTTP服务配置（/metrics, /health, /status）
type ServerConfig struct {
	Enable       bool          `yaml:"enable" mapstructure:"enable"`
	Addr         string        `yaml:"addr" mapstructure:"addr" validate:"required_if=Enable true"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout" validate:"gt=0"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout" validate:"gt=0"`
}

// InputConfig etcd 采集配置
type InputConfig struct {
	Scheme         string               `yaml:"scheme" mapstructure:"scheme" validate:"oneof=http https"`
	Host           string               `yaml:"host" mapstructure:"host" validate:"required"`
	Port           string               `yaml:"port" mapstructure:"port" validate:"required,numeric"`
	Period         time.Duration        `yaml:"period" mapstructure:"period" validate:"gt=0"`
	Timeout        time.Duration        `yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`
	Retry          RetryConfig          `yaml:"retry" mapstructure:"retry"`
	Authentication AuthenticationConfig `yaml:"authentication" mapstructure:"authentication"`
	Statistics     StatisticsConfig     `yaml:"statistics" mapstructure:"statistics"`
	V3             V3Config             `yaml:"v3" mapstructure:"v3"`
}

// RetryConfig 单次采集内的重试策略
type RetryConfig struct {
	MaxTries        uint          `yaml:"max_tries" mapstructure:"max_tries" validate:"gte=1,lte=10"`
	InitialInterval time.Duration `yaml:"initial_interval" mapstructure:"initial_interval" validate:"gt=0"`
}

// AuthenticationConfig BasicAuth
type AuthenticationConfig struct {
	Enable   bool   `yaml:"enable" mapstructure:"enable"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
}

// StatisticsConfig 各统计项开关
type StatisticsConfig struct {
	Leader bool `yaml:"leader" mapstructure:"leader"`
	Self   bool `yaml:"self" mapstructure:"self"`
	Store  bool `yaml:"store" mapstructure:"store"`
}

// V3Config etcd v3 Maintenance.Status 采集
type V3Config struct {
	Enable      bool          `yaml:"enable" mapstructure:"enable"`
	Endpoints   []string      `yaml:"endpoints" mapstructure:"endpoints" validate:"required_if=Enable true,dive,required"`
	DialTimeout time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout" validate:"gt=0"`
}

// OutputConfig 事件输出配置
type OutputConfig struct {
	QueueSize int                 `yaml:"queue_size" mapstructure:"queue_size" validate:"gt=0"`
	Console   ConsoleOutputConfig `yaml:"console" mapstructure:"console"`
	File      FileOutputConfig    `yaml:"file" mapstructure:"file"`
	Redis     RedisOutputConfig   `yaml:"redis" mapstructure:"redis"`
}

type ConsoleOutputConfig struct {
	Enable bool `yaml:"enable" mapstructure:"enable"`
	Pretty bool `yaml:"pretty" mapstructure:"pretty"`
}

type FileOutputConfig struct {
	Enable      bool          `yaml:"enable" mapstructure:"enable"`
	Path        string        `yaml:"path" mapstructure:"path" validate:"required_if=Enable true"`
	Filename    string        `yaml:"filename" mapstructure:"filename" validate:"required_if=Enable true,excludesall=/\\"`
	RotateEvery time.Duration `yaml:"rotate_every" mapstructure:"rotate_every" validate:"gt=0"`
	MaxAge      time.Duration `yaml:"max_age" mapstructure:"max_age" validate:"gt=0"`
	MaxSize     int           `yaml:"max_size" mapstructure:"max_size" validate:"gt=0"`
}

type RedisOutputConfig struct {
	Enable   bool          `yaml:"enable" mapstructure:"enable"`
	URL      string        `yaml:"url" mapstructure:"url" validate:"required_if=Enable true"`
	Key      string        `yaml:"key" mapstructure:"key" validate:"required_if=Enable true"`
	DataType string        `yaml:"datatype" mapstructure:"datatype" validate:"oneof=list channel"`
	Timeout  time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`
}

// MonitorConfig agent 自身监控
type MonitorConfig struct {
	Enable bool `yaml:"enable" mapstructure:"enable"`
}

// ZapLogConfig 日志配置
type ZapLogConfig struct {
	Level   string `yaml:"level" mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format  string `yaml:"format" mapstructure:"format" validate:"required,oneof=json console"`
	Path    string `yaml:"path" mapstructure:"path" validate:"required"`     // 目录或 glob，例如 ./logs/*
	MaxSize int    `yaml:"max_size" mapstructure:"max_size" validate:"gt=0"` // MB
	MaxAge  int    `yaml:"max_age" mapstructure:"max_age" validate:"gt=0"`   // 天
}

// NewDefaultConfig 创建默认配置（所有字段兜底，避免空指针/非法值）
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Enable:       true,
			Addr:         "0.0.0.0:5066",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Input: InputConfig{
			Scheme:  "http",
			Host:    "localhost",
			Port:    "2379",
			Period:  30 * time.Second,
			Timeout: 5 * time.Second,
			Retry: RetryConfig{
				MaxTries:        3,
				InitialInterval: 200 * time.Millisecond,
			},
			Statistics: StatisticsConfig{
				Leader: true,
				Self:   true,
				Store:  true,
			},
			V3: V3Config{
				Enable:      false,
				Endpoints:   []string{},
				DialTimeout: 5 * time.Second,
			},
		},
		Output: OutputConfig{
			QueueSize: 1024,
			Console: ConsoleOutputConfig{
				Enable: false,
			},
			File: FileOutputConfig{
				Enable:      true,
				Path:        "./data",
				Filename:    "etcdbeat",
				RotateEvery: 24 * time.Hour,
				MaxAge:      7 * 24 * time.Hour,
				MaxSize:     100,
			},
			Redis: RedisOutputConfig{
				Enable:   false,
				URL:      "redis://localhost:6379/0",
				Key:      "etcdbeat",
				DataType: "list",
				Timeout:  5 * time.Second,
			},
		},
		Monitor: MonitorConfig{
			Enable: true,
		},
		Log: ZapLogConfig{
			Level:   "info",
			Format:  "json",
			Path:    "./logs",
			MaxSize: 100,
			MaxAge:  7,
		},
	}
}

// LoadConfigWithCli 支持 time.Duration，(Flags + YAML + ENV)
func LoadConfigWithCli(cmd *cobra.Command) (*Config, error) {
	cfg := NewDefaultConfig()
	v := viper.New()

	// 1. 绑定 Cobra Flags → Viper
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	// 2. 解析配置文件 (--config)
	// 未显式指定且默认文件不存在时只用 flag/env
	configFile, _ := cmd.Flags().GetString("config")
	if configFile != "" && !cmd.Flags().Changed("config") {
		if _, err := os.Stat(configFile); errors.Is(err, os.ErrNotExist) {
			configFile = ""
		}
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configFile, err)
		}
	}

	// 3. 绑定环境变量 ETCDBEAT_INPUT_HOST -> input.host
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. 解码反序列化到结构体（支持 time.Duration）
	if err := decode(v.AllSettings(), cfg); err != nil {
		return nil, err
	}

	// 5. 校验配置
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func decode(settings map[string]any, cfg *Config) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return fmt.Errorf("new decoder: %w", err)
	}
	if err := decoder.Decode(settings); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

// Validate 配置校验
func (c *Config) Validate() error {
	if err := valid.Struct(c); err != nil {
		return err
	}
	// 1,校验Server服务配置
	if err := c.Server.Validate(); err != nil {
		return err
	}
	// 2，校验etcd采集配置
	if err := c.Input.Validate(); err != nil {
		return err
	}
	// 3，校验输出配置
	if err := c.Output.Validate(); err != nil {
		return err
	}
	// 4，校验日志配置
	if err := c.Log.Validate(); err != nil {
		return err
	}
	return nil
}
