package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/any-hub/fscache/internal/cache"
	"github.com/any-hub/fscache/internal/logging"
)

// cacheClient 是命令层依赖的最小能力集合：布尔化 Store 加上路径查询。
type cacheClient interface {
	cache.Store
	Path(key string) (string, error)
	ModTime(key string) (time.Time, error)
}

type commandEnv struct {
	store  cacheClient
	logger *logrus.Logger
	runID  string
}

// commandArity 记录每个子命令允许的参数个数区间。
var commandArity = map[string][2]int{
	"exists": {1, 1},
	"get":    {1, 1},
	"set":    {1, 2},
	"delete": {1, 1},
	"age":    {1, 1},
	"path":   {1, 1},
	"demo":   {0, 2},
}

func validateCommand(name string, args []string) error {
	arity, ok := commandArity[name]
	if !ok {
		return fmt.Errorf("未知命令 %q\n%v", name, errUsage)
	}
	if len(args) < arity[0] || len(args) > arity[1] {
		return fmt.Errorf("命令 %s 参数数量错误\n%v", name, errUsage)
	}
	if name == "demo" && len(args) == 1 {
		return fmt.Errorf("demo 需要同时提供 KEY 与 VALUE\n%v", errUsage)
	}
	return nil
}

// dispatch 执行子命令：成功（或结果为真）返回 0，否则返回 1。
func (e *commandEnv) dispatch(name string, args []string) int {
	switch name {
	case "exists":
		return e.printBool(name, args[0], e.store.Exists(args[0]))
	case "get":
		data, ok := e.store.Get(args[0])
		if ok {
			_, _ = stdOut.Write(data)
		}
		return e.finish(name, args[0], ok)
	case "set":
		value, err := e.setValue(args)
		if err != nil {
			fmt.Fprintf(stdErr, "读取 stdin 失败: %v\n", err)
			return 1
		}
		return e.printBool(name, args[0], e.store.Set(args[0], value))
	case "delete":
		return e.printBool(name, args[0], e.store.Delete(args[0]))
	case "age":
		// 退出码取决于条目是否存在，而非时间戳是否为 0（mtime 可能恰为纪元）。
		modTime, err := e.store.ModTime(args[0])
		if err != nil {
			fmt.Fprintln(stdOut, 0)
			return e.finish(name, args[0], false)
		}
		fmt.Fprintln(stdOut, modTime.Unix())
		return e.finish(name, args[0], true)
	case "path":
		path, err := e.store.Path(args[0])
		if err != nil {
			fmt.Fprintln(stdErr, err.Error())
			return e.finish(name, args[0], false)
		}
		fmt.Fprintln(stdOut, path)
		return e.finish(name, args[0], true)
	case "demo":
		key, value := "test", "foobar"
		if len(args) == 2 {
			key, value = args[0], args[1]
		}
		e.demo(key, value)
		return 0
	default:
		fmt.Fprintln(stdErr, errUsage.Error())
		return 2
	}
}

// setValue 未提供 VALUE 时从 stdin 读取完整正文，便于写入二进制内容。
func (e *commandEnv) setValue(args []string) ([]byte, error) {
	if len(args) == 2 {
		return []byte(args[1]), nil
	}
	return io.ReadAll(stdIn)
}

// demo 依次探测、写入、再探测、删除、再探测同一个 key，展示完整生命周期。
func (e *commandEnv) demo(key, value string) {
	probe := func() {
		fmt.Fprintf(stdOut, "-- exists(%s) = %t\n", key, e.store.Exists(key))
		fmt.Fprintf(stdOut, "-- age(%s) = %d\n", key, e.store.Age(key))
		if data, ok := e.store.Get(key); ok {
			fmt.Fprintf(stdOut, "-- get(%s) = %s\n", key, strconv.Quote(string(data)))
		} else {
			fmt.Fprintf(stdOut, "-- get(%s) = false\n", key)
		}
	}

	probe()
	fmt.Fprintf(stdOut, "- set(%s, %s) = %t\n", key, value, e.store.Set(key, []byte(value)))
	probe()
	fmt.Fprintf(stdOut, "- delete(%s) = %t\n", key, e.store.Delete(key))
	probe()
	e.finish("demo", key, true)
}

func (e *commandEnv) printBool(name, key string, ok bool) int {
	fmt.Fprintln(stdOut, strconv.FormatBool(ok))
	return e.finish(name, key, ok)
}

// finish 在 debug 级别记录命令结果并换算退出码。
func (e *commandEnv) finish(name, key string, ok bool) int {
	fields := logging.CommandFields(e.runID, name, key)
	fields["result"] = ok
	e.logger.WithFields(fields).Debug("command finished")
	if ok {
		return 0
	}
	return 1
}
