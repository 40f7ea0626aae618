package agent

import (
	"github.com/spf13/cobra"
)

func initOutputFlags(root *cobra.Command) {
	f := root.PersistentFlags()
	out := defaultCfg.Output

	f.Int("output.queue_size", out.QueueSize, "-> Event queue size | 事件队列长度")

	f.Bool("output.console.enable", out.Console.Enable, "-> Print events to stdout | 输出到标准输出")
	f.Bool("output.console.pretty", out.Console.Pretty, "-> Indent console events | 格式化输出")

	f.Bool("output.file.enable", out.File.Enable, "-> Write events to files | 输出到文件")
	f.String("output.file.path", out.File.Path, "-> Event file directory | 事件文件目录")
	f.String("output.file.filename", out.File.Filename, "-> Event file name prefix | 事件文件名前缀")
	f.Duration("output.file.rotate_every", out.File.RotateEvery, "-> Rotation interval | 轮转间隔")
	f.Duration("output.file.max_age", out.File.MaxAge, "-> Event file retention | 保留时长")
	f.Int("output.file.max_size", out.File.MaxSize, "-> Max size of single event file (MB) | 单文件最大MB")

	f.Bool("output.redis.enable", out.Redis.Enable, "-> Ship events to redis | 输出到 redis")
	f.String("output.redis.url", out.Redis.URL, "-> redis url | redis 地址")
	f.String("output.redis.key", out.Redis.Key, "-> redis list key or channel | 列表键或频道")
	f.String("output.redis.datatype", out.Redis.DataType, "-> [list,channel]")
	f.Duration("output.redis.timeout", out.Redis.Timeout, "-> redis timeout | redis 超时")
}
