package util

import (
	"fmt"
	"runtime"
)

// 构建时通过 -ldflags "-X github.com/etcdbeat/pkg/util.Version=..." 注入
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// VersionString 版本信息单行
func VersionString() string {
	return fmt.Sprintf("version=%s commit=%s built=%s go=%s %s/%s",
		Version, Commit, BuildDate, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
