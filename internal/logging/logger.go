package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/any-hub/fscache/internal/config"
)

// TextTimestampFormat 文本日志使用的时间格式，始终为 UTC。
const TextTimestampFormat = "2006-01-02 15:04:05"

// InitLogger 根据日志配置初始化结构化日志，确保文件/控制台输出一致。
// console 为未配置日志文件或文件不可用时的输出目标，nil 时使用 stdout。
func InitLogger(cfg config.LogConfig, console io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("无法解析日志级别: %w", err)
	}

	if console == nil {
		console = os.Stdout
	}
	output, outErr := buildOutput(cfg, console)
	if outErr != nil {
		fmt.Fprintf(os.Stderr, "logger_fallback: %v\n", outErr)
	}

	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetOutput(output)
	logger.SetFormatter(NewFormatter(cfg.LogFormat))

	logrus.SetFormatter(logger.Formatter)
	logrus.SetOutput(logger.Out)
	logrus.SetLevel(logger.GetLevel())

	if outErr != nil {
		logger.WithFields(logrus.Fields{
			"action": "logger_fallback",
			"path":   cfg.LogFilePath,
		}).Warn(outErr.Error())
	}

	return logger, nil
}

// NewFormatter 返回单行输出的 formatter：text 为 "时间 级别 消息 字段"，json 为一行一个对象。
func NewFormatter(format string) logrus.Formatter {
	if format == "json" {
		return &utcFormatter{inner: &logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano}}
	}
	return &utcFormatter{inner: &logrus.TextFormatter{
		DisableColors:    true,
		FullTimestamp:    true,
		TimestampFormat:  TextTimestampFormat,
		QuoteEmptyFields: true,
	}}
}

// utcFormatter 在交给内部 formatter 前把时间戳转换为 UTC。
type utcFormatter struct {
	inner logrus.Formatter
}

func (f *utcFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	entry.Time = entry.Time.UTC()
	return f.inner.Format(entry)
}

// buildOutput 根据配置创建日志输出 Writer；失败时降级到 console 并返回错误。
func buildOutput(cfg config.LogConfig, console io.Writer) (io.Writer, error) {
	if cfg.LogFilePath == "" {
		return console, nil
	}

	dir := filepath.Dir(cfg.LogFilePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return console, fmt.Errorf("创建日志目录失败: %w", err)
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.LogFilePath,
		MaxSize:    cfg.LogMaxSize,
		MaxBackups: cfg.LogMaxBackups,
		Compress:   cfg.LogCompress,
		LocalTime:  false,
	}
	return rotator, nil
}
