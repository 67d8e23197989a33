package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/any-hub/fscache/internal/cache"
	"github.com/any-hub/fscache/internal/config"
	"github.com/any-hub/fscache/internal/logging"
	"github.com/any-hub/fscache/internal/version"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	dir         string
	verbose     bool
	checkOnly   bool
	showVersion bool
	command     string
	args        []string
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
	stdIn  io.Reader = os.Stdin
)

var errUsage = errors.New("usage: fscache [-config path] [-dir path] [-verbose] [-check-config] [-version] <exists|get|set|delete|age|path|demo> [args]")

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}
	if err := applyOverrides(cfg, opts); err != nil {
		fmt.Fprintf(stdErr, "应用命令行参数失败: %v\n", err)
		return 1
	}

	// 命令结果占用 stdout，控制台日志（含 fallback 告警）一律写入 stderr。
	logger, err := logging.InitLogger(cfg.Log, stdErr)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["cache_directory"] = cfg.Cache.CacheDirectory
		fields["extension"] = cfg.Cache.Extension
		fields["verbose"] = cfg.Cache.Verbose
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	store, err := cache.New(cfg.Cache.CacheDirectory,
		cache.WithExtension(cfg.Cache.Extension),
		cache.WithDirPerm(cfg.Cache.DirPerm.Perm()),
		cache.WithFilePerm(cfg.Cache.FilePerm.Perm()),
		cache.WithVerbose(cfg.Cache.Verbose),
		cache.WithLogger(logger),
	)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化缓存失败: %v\n", err)
		return 1
	}

	runID := uuid.NewString()
	fields := logging.BaseFields("startup", opts.configPath)
	fields["run_id"] = runID
	fields["cache_directory"] = cfg.Cache.CacheDirectory
	fields["version"] = version.Full()
	logger.WithFields(fields).Debug("配置加载完成")

	env := &commandEnv{
		store:  store,
		logger: logger,
		runID:  runID,
	}
	return env.dispatch(opts.command, opts.args)
}

// applyOverrides 让 -dir/-verbose 优先于配置文件与环境变量。
func applyOverrides(cfg *config.Config, opts cliOptions) error {
	if opts.dir != "" {
		abs, err := filepath.Abs(opts.dir)
		if err != nil {
			return fmt.Errorf("无法解析缓存目录: %w", err)
		}
		cfg.Cache.CacheDirectory = abs
	}
	if opts.verbose {
		cfg.Cache.Verbose = true
	}
	return nil
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("fscache", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		dirFlag    string
		verbose    bool
		checkOnly  bool
		showVer    bool
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（可被 FSCACHE_CONFIG 提供，留空则仅使用默认值与环境变量）")
	fs.StringVar(&dirFlag, "dir", "", "缓存目录，覆盖配置中的 CacheDirectory")
	fs.BoolVar(&verbose, "verbose", false, "输出常规操作的诊断日志")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	path := os.Getenv("FSCACHE_CONFIG")
	if configFlag != "" {
		path = configFlag
	}

	opts := cliOptions{
		configPath:  path,
		dir:         dirFlag,
		verbose:     verbose,
		checkOnly:   checkOnly,
		showVersion: showVer,
	}
	if showVer || checkOnly {
		return opts, nil
	}

	rest := fs.Args()
	if len(rest) == 0 {
		return cliOptions{}, errUsage
	}
	opts.command, opts.args = rest[0], rest[1:]
	if err := validateCommand(opts.command, opts.args); err != nil {
		return cliOptions{}, err
	}
	return opts, nil
}
