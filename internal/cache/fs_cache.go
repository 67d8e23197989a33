package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/any-hub/fscache/internal/logging"
)

// Cache 在构造后不再修改任何字段，路径推导全部在调用内部完成，
// 因此同一实例可以被多个 goroutine 共享而不会串用路径。
type Cache struct {
	dir      string
	ext      string
	dirPerm  os.FileMode
	filePerm os.FileMode
	verbose  bool
	logger   logrus.FieldLogger
}

var _ Store = (*Cache)(nil)

// New 以 dir 为根构建缓存；目录不会在此处创建，而是在首次 Set 时按需创建。
func New(dir string, opts ...Option) (*Cache, error) {
	if dir == "" {
		dir = DefaultDirectory
	}
	c := &Cache{
		dir:      dir,
		ext:      DefaultExtension,
		dirPerm:  defaultDirPerm,
		filePerm: defaultFilePerm,
		logger:   defaultLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if strings.ContainsAny(c.ext, `/\`) {
		return nil, fmt.Errorf("invalid cache extension %q", c.ext)
	}
	return c, nil
}

// Dir 返回缓存根目录。
func (c *Cache) Dir() string {
	return c.dir
}

// Path 返回 key 对应的条目路径。
func (c *Cache) Path(key string) (string, error) {
	filePath, err := DerivePath(c.dir, key, c.ext)
	if err != nil {
		return "", newError("path", key, "", ErrDerivationFailed, err)
	}
	return filePath, nil
}

// Stat 确认条目是可读的普通文件并返回其描述。
func (c *Cache) Stat(key string) (Entry, error) {
	return c.stat("stat", key)
}

func (c *Cache) stat(op, key string) (Entry, error) {
	filePath, err := DerivePath(c.dir, key, c.ext)
	if err != nil {
		return Entry{}, newError(op, key, "", ErrDerivationFailed, err)
	}

	info, err := os.Stat(filePath)
	if err != nil {
		return Entry{}, newError(op, key, filePath, classify(err), err)
	}
	if !info.Mode().IsRegular() {
		return Entry{}, newError(op, key, filePath, ErrNotFound, nil)
	}

	f, err := os.Open(filePath)
	if err != nil {
		return Entry{}, newError(op, key, filePath, classify(err), err)
	}
	_ = f.Close()

	return Entry{
		Key:       key,
		FilePath:  filePath,
		SizeBytes: info.Size(),
		ModTime:   info.ModTime(),
	}, nil
}

// Load 读取完整正文。读取结果为空时视同失败，返回 ErrEmptyContent。
func (c *Cache) Load(key string) ([]byte, error) {
	data, _, err := c.load(key)
	return data, err
}

// load 先重新确认条目存在再读取，避免与并发 Delete 交错时读到不存在的文件。
func (c *Cache) load(key string) ([]byte, Entry, error) {
	entry, err := c.stat("load", key)
	if err != nil {
		return nil, entry, err
	}
	data, err := os.ReadFile(entry.FilePath)
	if err != nil {
		return nil, entry, newError("load", key, entry.FilePath, classify(err), err)
	}
	if len(data) == 0 {
		return nil, entry, newError("load", key, entry.FilePath, ErrEmptyContent, nil)
	}
	return data, entry, nil
}

// Store 逐级创建父目录后截断写入 value。写入非原子：并发读取可能看到半写文件。
func (c *Cache) Store(key string, value []byte) (Entry, error) {
	filePath, err := DerivePath(c.dir, key, c.ext)
	if err != nil {
		return Entry{}, newError("store", key, "", ErrDerivationFailed, err)
	}

	if err := os.MkdirAll(filepath.Dir(filePath), c.dirPerm); err != nil {
		return Entry{}, newError("store", key, filePath, ErrIO, err)
	}

	f, err := os.OpenFile(filePath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, c.filePerm)
	if err != nil {
		return Entry{}, newError("store", key, filePath, ErrIO, err)
	}
	written, err := f.Write(value)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		return Entry{}, newError("store", key, filePath, ErrIO, err)
	}

	modTime := time.Now()
	if info, statErr := os.Stat(filePath); statErr == nil {
		modTime = info.ModTime()
	}
	return Entry{
		Key:       key,
		FilePath:  filePath,
		SizeBytes: int64(written),
		ModTime:   modTime,
	}, nil
}

// Remove 删除已存在的条目。
func (c *Cache) Remove(key string) error {
	entry, err := c.stat("remove", key)
	if err != nil {
		return err
	}
	if err := os.Remove(entry.FilePath); err != nil {
		kind := ErrIO
		if errors.Is(err, fs.ErrNotExist) {
			kind = ErrNotFound
		}
		return newError("remove", key, entry.FilePath, kind, err)
	}
	return nil
}

// ModTime 返回条目最后写入时间；不反映最后读取时间。
func (c *Cache) ModTime(key string) (time.Time, error) {
	entry, err := c.stat("modtime", key)
	if err != nil {
		return time.Time{}, err
	}
	return entry.ModTime.UTC(), nil
}

func (c *Cache) Exists(key string) bool {
	entry, err := c.Stat(key)
	if err != nil {
		c.report("exists", key, err)
		return false
	}
	c.info(logrus.Fields{"action": "exists", "key": key, "path": entry.FilePath}, "entry exists")
	return true
}

func (c *Cache) Get(key string) ([]byte, bool) {
	data, entry, err := c.load(key)
	if err != nil {
		c.report("get", key, err)
		return nil, false
	}
	c.info(logrus.Fields{"action": "get", "key": key, "path": entry.FilePath, "bytes": len(data)}, "entry read")
	return data, true
}

func (c *Cache) Set(key string, value []byte) bool {
	entry, err := c.Store(key, value)
	if err != nil {
		c.report("set", key, err)
		return false
	}
	c.info(logrus.Fields{"action": "set", "key": key, "path": entry.FilePath, "bytes": entry.SizeBytes}, "entry written")
	return true
}

func (c *Cache) Delete(key string) bool {
	if err := c.Remove(key); err != nil {
		c.report("delete", key, err)
		return false
	}
	c.info(logrus.Fields{"action": "delete", "key": key}, "entry deleted")
	return true
}

func (c *Cache) Age(key string) int64 {
	modTime, err := c.ModTime(key)
	if err != nil {
		c.report("age", key, err)
		return 0
	}
	return modTime.Unix()
}

// report 按错误类别分级：缺失条目属于常规结果，只在 verbose 下输出；
// 其余类别（推导失败、不可读、IO、空内容）始终以 error 级输出。
func (c *Cache) report(action, key string, err error) {
	fields := logrus.Fields{"action": action, "key": key}
	var cerr *Error
	if errors.As(err, &cerr) && cerr.Path != "" {
		fields["path"] = cerr.Path
	}
	if errors.Is(err, ErrNotFound) {
		c.info(fields, "entry does not exist or is not readable")
		return
	}
	c.logger.WithFields(fields).WithError(err).Error(action + " failed")
}

func (c *Cache) info(fields logrus.Fields, msg string) {
	if !c.verbose {
		return
	}
	c.logger.WithFields(fields).Info(msg)
}

// defaultLogger 在未注入 logger 时使用：写 stderr，UTC 单行文本格式。
func defaultLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(logging.NewFormatter("text"))
	return logger
}

// classify 将读路径上的 OS 错误映射为缓存错误类别。
func classify(err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return ErrNotFound
	case errors.Is(err, fs.ErrPermission):
		return ErrUnreadable
	default:
		return ErrIO
	}
}
