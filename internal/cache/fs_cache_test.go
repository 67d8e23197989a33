package cache

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

func TestCacheNonExistent(t *testing.T) {
	c, _ := newTestCache(t)
	key := "key-1"

	if c.Exists(key) {
		t.Fatalf("unset key should not exist")
	}
	if age := c.Age(key); age != 0 {
		t.Fatalf("unset key age = %d, want 0", age)
	}
	if data, ok := c.Get(key); ok || data != nil {
		t.Fatalf("unset key Get = %q, %v", data, ok)
	}
	if c.Delete(key) {
		t.Fatalf("unset key Delete should return false")
	}
}

func TestCacheScenario(t *testing.T) {
	c, _ := newTestCache(t)
	key, value := "test", []byte("foobar")

	before := time.Now().Add(-2 * time.Second).Unix()
	if !c.Set(key, value) {
		t.Fatalf("Set should succeed")
	}
	if !c.Exists(key) {
		t.Fatalf("key should exist after Set")
	}
	got, ok := c.Get(key)
	if !ok || !bytes.Equal(got, value) {
		t.Fatalf("Get = %q, %v; want %q", got, ok, value)
	}
	age := c.Age(key)
	if age < before || age > time.Now().Add(2*time.Second).Unix() {
		t.Fatalf("Age = %d is not a plausible current timestamp", age)
	}

	if !c.Delete(key) {
		t.Fatalf("Delete should succeed")
	}
	if c.Exists(key) {
		t.Fatalf("key should not exist after Delete")
	}
	if _, ok := c.Get(key); ok {
		t.Fatalf("Get after Delete should fail")
	}
	if c.Age(key) != 0 {
		t.Fatalf("Age after Delete should be 0")
	}
	if c.Delete(key) {
		t.Fatalf("second Delete should return false")
	}
}

func TestCacheOverwrite(t *testing.T) {
	c, _ := newTestCache(t)
	key := "overwrite"

	if !c.Set(key, []byte("a much longer first value")) {
		t.Fatalf("first Set failed")
	}
	if !c.Set(key, []byte("short")) {
		t.Fatalf("second Set failed")
	}
	got, ok := c.Get(key)
	if !ok || string(got) != "short" {
		t.Fatalf("Get = %q, %v; want %q", got, ok, "short")
	}
}

func TestCacheBinaryRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	value := []byte{0x00, 0xff, 0x1f, 0x8b, 0x00, '\n', 0x7f}

	if !c.Set("binary", value) {
		t.Fatalf("Set failed")
	}
	got, ok := c.Get("binary")
	if !ok || !bytes.Equal(got, value) {
		t.Fatalf("Get = %v, %v; want %v", got, ok, value)
	}
}

func TestCacheEmptyValueQuirk(t *testing.T) {
	c, hook := newTestCache(t)
	key := "empty"

	if !c.Set(key, nil) {
		t.Fatalf("Set with empty value should succeed")
	}
	if !c.Exists(key) {
		t.Fatalf("empty entry should still exist")
	}

	hook.Reset()
	if data, ok := c.Get(key); ok || data != nil {
		t.Fatalf("Get of empty entry = %q, %v; want failure", data, ok)
	}
	entry := hook.LastEntry()
	if entry == nil || entry.Level != logrus.ErrorLevel {
		t.Fatalf("empty content should log an error, got %+v", entry)
	}

	_, err := c.Load(key)
	if !errors.Is(err, ErrEmptyContent) {
		t.Fatalf("Load error = %v, want ErrEmptyContent", err)
	}
}

func TestCacheCreatesShardDirectoriesLazily(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "cache")
	c, err := New(root, WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if _, err := os.Stat(root); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("root should not be created by New, stat err = %v", err)
	}

	if !c.Set("test", []byte("foobar")) {
		t.Fatalf("Set failed")
	}
	path := filepath.Join(root, "0", "98", "098f6bcd4621d373cade4e832627b4f6.cache")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected cache file at %s: %v", path, err)
	}
	if string(data) != "foobar" {
		t.Fatalf("file content = %q, stored raw value expected", data)
	}
}

func TestCacheExtensionOption(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir, WithExtension(".gz"), WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	entry, err := c.Store("test", []byte("foobar"))
	if err != nil {
		t.Fatalf("Store error: %v", err)
	}
	if filepath.Ext(entry.FilePath) != ".gz" {
		t.Fatalf("unexpected extension in %s", entry.FilePath)
	}
	if entry.SizeBytes != 6 {
		t.Fatalf("SizeBytes = %d, want 6", entry.SizeBytes)
	}

	if _, err := New(dir, WithExtension("/x")); err == nil {
		t.Fatalf("extension with separator should be rejected")
	}
}

func TestCacheDefaultDirectory(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if c.Dir() != DefaultDirectory {
		t.Fatalf("Dir = %s, want %s", c.Dir(), DefaultDirectory)
	}
}

func TestCacheDefaultLoggerUsesUTCText(t *testing.T) {
	c, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	logger, ok := c.logger.(*logrus.Logger)
	if !ok {
		t.Fatalf("default logger type = %T", c.logger)
	}
	if logger == logrus.StandardLogger() {
		t.Fatalf("default logger should not share the global logrus instance")
	}
	entry := &logrus.Entry{
		Logger:  logger,
		Time:    time.Date(2024, 5, 6, 7, 8, 9, 0, time.FixedZone("UTC+8", 8*3600)),
		Level:   logrus.ErrorLevel,
		Message: "set failed",
		Data:    logrus.Fields{},
	}
	out, err := logger.Formatter.Format(entry)
	if err != nil {
		t.Fatalf("format error: %v", err)
	}
	line := string(out)
	if !strings.Contains(line, `time="2024-05-05 23:08:09"`) || strings.Count(line, "\n") != 1 {
		t.Fatalf("default logger should emit single-line UTC text, got %q", line)
	}
}

func TestCacheEmptyKeyIsDerivationFailure(t *testing.T) {
	c, hook := newTestCache(t)

	if c.Set("", []byte("value")) {
		t.Fatalf("Set with empty key should fail")
	}
	entry := hook.LastEntry()
	if entry == nil || entry.Level != logrus.ErrorLevel {
		t.Fatalf("derivation failure should log an error")
	}
	if c.Exists("") || c.Delete("") || c.Age("") != 0 {
		t.Fatalf("empty key operations should all fail")
	}

	_, err := c.Path("")
	if !errors.Is(err, ErrDerivationFailed) {
		t.Fatalf("Path error = %v, want ErrDerivationFailed", err)
	}
}

func TestCacheDirectoryAtEntryPath(t *testing.T) {
	c, _ := newTestCache(t)
	path, err := c.Path("dir")
	if err != nil {
		t.Fatalf("Path error: %v", err)
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("mkdir error: %v", err)
	}

	if c.Exists("dir") {
		t.Fatalf("directory should not count as an entry")
	}
	if _, err := c.Stat("dir"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Stat error = %v, want ErrNotFound", err)
	}
	if c.Set("dir", []byte("value")) {
		t.Fatalf("Set over a directory should fail")
	}
}

func TestCacheUnreadableEntry(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root bypasses file permissions")
	}
	c, hook := newTestCache(t)
	entry, err := c.Store("locked", []byte("secret"))
	if err != nil {
		t.Fatalf("Store error: %v", err)
	}
	if err := os.Chmod(entry.FilePath, 0o000); err != nil {
		t.Fatalf("chmod error: %v", err)
	}
	t.Cleanup(func() { _ = os.Chmod(entry.FilePath, 0o644) })

	hook.Reset()
	if c.Exists("locked") {
		t.Fatalf("unreadable entry should not exist")
	}
	if hook.LastEntry() == nil || hook.LastEntry().Level != logrus.ErrorLevel {
		t.Fatalf("unreadable entry should log an error")
	}
	_, err = c.Load("locked")
	if !errors.Is(err, ErrUnreadable) || !errors.Is(err, fs.ErrPermission) {
		t.Fatalf("Load error = %v, want ErrUnreadable wrapping ErrPermission", err)
	}
	if KindOf(err) != ErrUnreadable {
		t.Fatalf("KindOf = %v", KindOf(err))
	}
}

func TestCacheExternalRemoval(t *testing.T) {
	c, _ := newTestCache(t)
	entry, err := c.Store("gone", []byte("value"))
	if err != nil {
		t.Fatalf("Store error: %v", err)
	}
	if err := os.Remove(entry.FilePath); err != nil {
		t.Fatalf("remove error: %v", err)
	}
	if c.Exists("gone") {
		t.Fatalf("externally removed entry should not exist")
	}
	if err := c.Remove("gone"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Remove error = %v, want ErrNotFound", err)
	}
}

func TestCacheModTimeFollowsFile(t *testing.T) {
	c, _ := newTestCache(t)
	entry, err := c.Store("aged", []byte("value"))
	if err != nil {
		t.Fatalf("Store error: %v", err)
	}
	past := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := os.Chtimes(entry.FilePath, past, past); err != nil {
		t.Fatalf("chtimes error: %v", err)
	}
	if age := c.Age("aged"); age != past.Unix() {
		t.Fatalf("Age = %d, want %d", age, past.Unix())
	}
	modTime, err := c.ModTime("aged")
	if err != nil {
		t.Fatalf("ModTime error: %v", err)
	}
	if modTime.Location() != time.UTC {
		t.Fatalf("ModTime should be UTC, got %v", modTime.Location())
	}
}

func TestCacheVerboseLogging(t *testing.T) {
	logger, hook := logtest.NewNullLogger()

	quiet, err := New(t.TempDir(), WithLogger(logger))
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	quiet.Set("k", []byte("v"))
	quiet.Exists("missing")
	if n := len(hook.AllEntries()); n != 0 {
		t.Fatalf("non-verbose cache logged %d entries", n)
	}

	loud, err := New(t.TempDir(), WithLogger(logger), WithVerbose(true))
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	loud.Set("k", []byte("value"))
	entry := hook.LastEntry()
	if entry == nil || entry.Level != logrus.InfoLevel {
		t.Fatalf("verbose Set should log at info level")
	}
	if entry.Data["action"] != "set" || entry.Data["bytes"] != int64(5) {
		t.Fatalf("unexpected fields: %v", entry.Data)
	}
}

func TestCacheConcurrentDistinctKeys(t *testing.T) {
	c, _ := newTestCache(t)

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", i)
			value := []byte(fmt.Sprintf("value-%d", i))
			if !c.Set(key, value) {
				errs <- fmt.Errorf("Set(%s) failed", key)
				return
			}
			got, ok := c.Get(key)
			if !ok || !bytes.Equal(got, value) {
				errs <- fmt.Errorf("Get(%s) = %q, %v", key, got, ok)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

// newTestCache returns a Cache rooted at a temp dir with a capturing logger.
func newTestCache(t *testing.T) (*Cache, *logtest.Hook) {
	t.Helper()
	logger, hook := logtest.NewNullLogger()
	c, err := New(t.TempDir(), WithLogger(logger))
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	return c, hook
}

func discardLogger() *logrus.Logger {
	logger, _ := logtest.NewNullLogger()
	return logger
}
