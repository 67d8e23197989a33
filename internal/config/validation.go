package config

import (
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
)

var supportedLogFormats = map[string]struct{}{
	"text": {},
	"json": {},
}

// Validate 针对语义级别做进一步校验，防止非法配置进入缓存层。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	cc := c.Cache
	if cc.CacheDirectory == "" {
		return newFieldError("CacheDirectory", "不能为空")
	}
	if cc.Extension == "" {
		return newFieldError("Extension", "不能为空")
	}
	if !strings.HasPrefix(cc.Extension, ".") {
		return newFieldError("Extension", "必须以 . 开头")
	}
	if strings.ContainsAny(cc.Extension, `/\`) {
		return newFieldError("Extension", "不允许包含路径分隔符")
	}
	if cc.DirPerm.Perm()&0o700 != 0o700 {
		return newFieldError("DirPerm", "属主必须具备 rwx 权限")
	}
	if cc.FilePerm.Perm()&0o600 != 0o600 {
		return newFieldError("FilePerm", "属主必须具备 rw 权限")
	}

	lc := c.Log
	if _, err := logrus.ParseLevel(lc.LogLevel); err != nil {
		return newFieldError("LogLevel", "无法识别的日志级别: "+lc.LogLevel)
	}
	if _, ok := supportedLogFormats[lc.LogFormat]; !ok {
		return newFieldError("LogFormat", "仅支持 text|json")
	}
	if lc.LogMaxSize < 0 {
		return newFieldError("LogMaxSize", "不能为负数")
	}
	if lc.LogMaxBackups < 0 {
		return newFieldError("LogMaxBackups", "不能为负数")
	}
	return nil
}
