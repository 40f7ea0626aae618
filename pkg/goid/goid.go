// Package goid 读取当前 goroutine ID，仅用于日志前缀排查并发问题。
package goid

import (
	"bytes"
	"runtime"
	"strconv"
)

var prefix = []byte("goroutine ")

// GetGID 获取当前 goroutine 的 ID，解析失败返回 0
func GetGID() uint64 {
	var buf [64]byte
	b := buf[:runtime.Stack(buf[:], false)]
	// 栈信息类似: "goroutine 123 [running]:\n"
	b = bytes.TrimPrefix(b, prefix)
	if i := bytes.IndexByte(b, ' '); i > 0 {
		b = b[:i]
	}
	id, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// String 返回十进制字符串形式
func String() string {
	return strconv.FormatUint(GetGID(), 10)
}
