package cache

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Store 是面向调用方的布尔化接口，所有失败都折叠为 false/nil/0，不向上抛错。
// 磁盘布局遵循：
//
//	<CacheDirectory>/<h>/<hh>/<md5hex><ext>    # 原始正文
//
// 条目的存在性与时间戳取自文件系统属性，正文中不嵌入任何元数据。
type Store interface {
	// Exists 判断条目文件存在且可读。
	Exists(key string) bool

	// Get 返回最近一次 Set 写入的字节；不存在、读取失败或内容为空时返回 false。
	Get(key string) ([]byte, bool)

	// Set 按需逐级创建父目录并覆盖写入 value。
	Set(key string, value []byte) bool

	// Delete 删除已存在的条目；条目不存在时返回 false。
	Delete(key string) bool

	// Age 返回最后写入时间（Unix 秒，UTC）；条目不存在时返回 0。
	Age(key string) int64
}

// Entry 描述磁盘上的一个缓存条目。
type Entry struct {
	Key       string    `json:"key"`
	FilePath  string    `json:"file_path"`
	SizeBytes int64     `json:"size_bytes"`
	ModTime   time.Time `json:"mod_time"`
}

const (
	// DefaultDirectory 未配置目录时使用的相对路径。
	DefaultDirectory = "cache"
	// DefaultExtension 条目文件后缀；内容从不压缩。
	DefaultExtension = ".cache"

	defaultDirPerm  os.FileMode = 0o755
	defaultFilePerm os.FileMode = 0o644
)

// Option 用于在 New 中调整 Cache 的可选参数。
type Option func(*Cache)

// WithExtension 设置条目文件后缀，例如 ".gz" 以兼容旧布局。
func WithExtension(ext string) Option {
	return func(c *Cache) {
		c.ext = ext
	}
}

// WithDirPerm 设置分片目录的权限位。
func WithDirPerm(mode os.FileMode) Option {
	return func(c *Cache) {
		c.dirPerm = mode
	}
}

// WithFilePerm 设置新建条目文件的权限位。
func WithFilePerm(mode os.FileMode) Option {
	return func(c *Cache) {
		c.filePerm = mode
	}
}

// WithVerbose 开启后常规操作也会输出 info 级诊断日志；错误日志始终输出。
func WithVerbose(verbose bool) Option {
	return func(c *Cache) {
		c.verbose = verbose
	}
}

// WithLogger 注入日志实例，nil 时保持默认的 UTC 单行 logger。
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}
