package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// EnvPrefix 为环境变量覆盖前缀，例如 FSCACHE_CACHEDIRECTORY。
const EnvPrefix = "FSCACHE"

// Load 读取 TOML 配置文件并叠加环境变量；path 为空时只使用默认值与环境变量。
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if filepath.Ext(path) == "" {
			v.SetConfigType("toml")
		}
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(fileModeDecodeHook())); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := cfg.resolvePaths(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default 返回不读取文件与环境变量的默认配置。
func Default() *Config {
	cfg := &Config{
		Cache: CacheConfig{
			CacheDirectory: "cache",
			Extension:      ".cache",
			DirPerm:        FileMode(0o755),
			FilePerm:       FileMode(0o644),
		},
		Log: LogConfig{
			LogLevel:      "info",
			LogFormat:     "text",
			LogMaxSize:    100,
			LogMaxBackups: 10,
			LogCompress:   true,
		},
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("CacheDirectory", d.Cache.CacheDirectory)
	v.SetDefault("Verbose", d.Cache.Verbose)
	v.SetDefault("Extension", d.Cache.Extension)
	v.SetDefault("DirPerm", d.Cache.DirPerm.String())
	v.SetDefault("FilePerm", d.Cache.FilePerm.String())
	v.SetDefault("LogLevel", d.Log.LogLevel)
	v.SetDefault("LogFormat", d.Log.LogFormat)
	v.SetDefault("LogFilePath", d.Log.LogFilePath)
	v.SetDefault("LogMaxSize", d.Log.LogMaxSize)
	v.SetDefault("LogMaxBackups", d.Log.LogMaxBackups)
	v.SetDefault("LogCompress", d.Log.LogCompress)
}

func applyDefaults(cfg *Config) {
	c := &cfg.Cache
	c.CacheDirectory = strings.TrimSpace(c.CacheDirectory)
	if c.CacheDirectory == "" {
		c.CacheDirectory = "cache"
	}
	c.Extension = strings.TrimSpace(c.Extension)
	if c.Extension != "" && !strings.HasPrefix(c.Extension, ".") {
		c.Extension = "." + c.Extension
	}
	if c.DirPerm == 0 {
		c.DirPerm = FileMode(0o755)
	}
	if c.FilePerm == 0 {
		c.FilePerm = FileMode(0o644)
	}

	l := &cfg.Log
	l.LogLevel = strings.ToLower(strings.TrimSpace(l.LogLevel))
	if l.LogLevel == "" {
		l.LogLevel = "info"
	}
	l.LogFormat = strings.ToLower(strings.TrimSpace(l.LogFormat))
	if l.LogFormat == "" {
		l.LogFormat = "text"
	}
}

func (c *Config) resolvePaths() error {
	abs, err := filepath.Abs(c.Cache.CacheDirectory)
	if err != nil {
		return fmt.Errorf("无法解析缓存目录: %w", err)
	}
	c.Cache.CacheDirectory = abs
	return nil
}

func fileModeDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(FileMode(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return parseFileMode(v)
		case int:
			return checkedMode(int64(v))
		case int64:
			return checkedMode(v)
		case float64:
			return checkedMode(int64(v))
		case os.FileMode:
			return FileMode(v.Perm()), nil
		case FileMode:
			return v, nil
		default:
			return nil, fmt.Errorf("不支持的权限类型: %T", v)
		}
	}
}

// checkedMode 处理 TOML 中的整数写法（如 0o755 已被解析为 493）。
func checkedMode(v int64) (FileMode, error) {
	if v < 0 || v > 0o777 {
		return 0, fmt.Errorf("权限值超出范围: %d", v)
	}
	return FileMode(v), nil
}
