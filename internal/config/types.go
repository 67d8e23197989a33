package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// FileMode 允许以八进制字符串（"0755"、"0o755"）或整数形式配置权限位。
type FileMode os.FileMode

// UnmarshalText 使 Viper 可以识别 "0755"/"0o755"/"755" 等写法，统一按八进制解析。
func (m *FileMode) UnmarshalText(text []byte) error {
	mode, err := parseFileMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// Perm 返回 os.FileMode，便于直接传给 os.MkdirAll/os.OpenFile。
func (m FileMode) Perm() os.FileMode {
	return os.FileMode(m).Perm()
}

func (m FileMode) String() string {
	return fmt.Sprintf("%#o", uint32(m.Perm()))
}

func parseFileMode(raw string) (FileMode, error) {
	value := strings.TrimSpace(raw)
	value = strings.TrimPrefix(strings.TrimPrefix(value, "0o"), "0O")
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.ParseUint(value, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid file mode value: %s", raw)
	}
	if parsed > 0o777 {
		return 0, fmt.Errorf("file mode out of range: %s", raw)
	}
	return FileMode(parsed), nil
}

// CacheConfig 描述缓存目录布局与诊断开关。
type CacheConfig struct {
	CacheDirectory string   `mapstructure:"CacheDirectory"`
	Verbose        bool     `mapstructure:"Verbose"`
	Extension      string   `mapstructure:"Extension"`
	DirPerm        FileMode `mapstructure:"DirPerm"`
	FilePerm       FileMode `mapstructure:"FilePerm"`
}

// LogConfig 决定日志级别、格式与输出位置。
type LogConfig struct {
	LogLevel      string `mapstructure:"LogLevel"`
	LogFormat     string `mapstructure:"LogFormat"`
	LogFilePath   string `mapstructure:"LogFilePath"`
	LogMaxSize    int    `mapstructure:"LogMaxSize"`
	LogMaxBackups int    `mapstructure:"LogMaxBackups"`
	LogCompress   bool   `mapstructure:"LogCompress"`
}

// Config 是 TOML 文件映射的整体结构，所有键位于顶层。
type Config struct {
	Cache CacheConfig `mapstructure:",squash"`
	Log   LogConfig   `mapstructure:",squash"`
}
