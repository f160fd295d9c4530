package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/tarnish-app/tarnish/internal/cache"
	"github.com/tarnish-app/tarnish/internal/config"
	"github.com/tarnish-app/tarnish/internal/feed"
	"github.com/tarnish-app/tarnish/internal/library"
	"github.com/tarnish-app/tarnish/internal/logging"
	"github.com/tarnish-app/tarnish/internal/server"
	"github.com/tarnish-app/tarnish/internal/server/routes"
	"github.com/tarnish-app/tarnish/internal/shell"
	"github.com/tarnish-app/tarnish/internal/version"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool
	serve       bool
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

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

	logger, err := logging.InitLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["platform"] = cfg.Trove.Platform
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := bootstrap(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(stdErr, "%v\n", err)
		return 1
	}
	lib := svc.library

	fields := logging.BaseFields("startup", opts.configPath)
	fields["version"] = version.Full()
	fields["platform"] = cfg.Trove.Platform
	fields["total"] = lib.Stats().Total
	fields["number_downloaded"] = lib.Stats().NumberDownloaded
	logger.WithFields(fields).Info("库状态加载完成")

	if opts.serve {
		if err := startHTTPServer(ctx, cfg, lib, svc.store, logger); err != nil {
			fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
			return 1
		}
		return 0
	}

	sh, err := shell.New(shell.Options{
		Library:     lib,
		Client:      svc.client,
		HistoryFile: cfg.System.History,
		Out:         stdOut,
		Logger:      logger,
		Fancy:       shell.IsTerminal(os.Stdout.Fd()),
	})
	if err != nil {
		fmt.Fprintf(stdErr, "初始化 shell 失败: %v\n", err)
		return 1
	}
	if err := sh.Run(ctx); err != nil {
		fmt.Fprintf(stdErr, "shell 异常退出: %v\n", err)
		return 1
	}
	return 0
}

// services 汇总启动阶段构建的协作者。
type services struct {
	client  *http.Client
	store   cache.Store
	library *library.Library
}

// bootstrap 按“缓存 → feed 快照 → Library 对账”的顺序构建运行期依赖，
// 保证 shell 与状态服务共享同一份缓存和库状态。
func bootstrap(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*services, error) {
	store, err := cache.NewStore(cfg.System.Cache)
	if err != nil {
		if !cache.IsRootError(err) {
			return nil, fmt.Errorf("初始化缓存目录失败: %w", err)
		}
		logger.WithFields(logrus.Fields{"action": "cache_root", "path": cfg.System.Cache}).
			WithError(err).Warn("cache root unavailable, will retry on first write")
	}

	httpClient := server.NewUpstreamClient(cfg)
	httpCache := cache.New(store, cache.NewHTTPFetcher(httpClient, version.UserAgent()), logger)

	snapshot, err := feed.Load(ctx, httpCache, cfg.Feed, logger)
	if err != nil {
		return nil, fmt.Errorf("加载 feed 失败: %w", err)
	}

	lib, err := library.New(library.Options{
		Root:      cfg.Trove.Root,
		Downloads: cfg.System.Downloads,
		Platform:  cfg.Trove.Platform,
	}, snapshot, httpCache, logger)
	if err != nil {
		return nil, fmt.Errorf("构建库状态失败: %w", err)
	}

	if _, err := lib.CacheImages(ctx); err != nil {
		logger.WithFields(logrus.Fields{"action": "cache_images"}).WithError(err).Warn("some images could not be cached")
	}

	reconcile(lib, logger)
	return &services{client: httpClient, store: store, library: lib}, nil
}

// reconcile 在进入交互前把暂存目录中的安装包迁入规范库并刷新状态。
func reconcile(lib *library.Library, logger *logrus.Logger) {
	strays, err := lib.StrayDownloads()
	if err != nil {
		logger.WithFields(logrus.Fields{"action": "stray_scan"}).WithError(err).Warn("staging directory unavailable")
		return
	}
	fmt.Fprintf(stdOut, "In downloads: %d\n", len(strays))

	report, err := lib.MoveDownloads()
	if err != nil {
		logger.WithFields(logrus.Fields{"action": "move_download"}).WithError(err).Warn("move downloads failed")
	}
	stats := lib.UpdateDownloadStatus()
	logger.WithFields(logrus.Fields{
		"action":            "reconcile",
		"moved":             len(report.Moved),
		"unmoved":           len(report.Unmoved),
		"number_downloaded": stats.NumberDownloaded,
		"total":             stats.Total,
	}).Info("reconciled staging directory")
	fmt.Fprintf(stdOut, "Downloaded: %d; Total: %d\n", stats.NumberDownloaded, stats.Total)
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("tarnish", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		checkOnly  bool
		showVer    bool
		serve      bool
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./config.toml，可被 TARNISH_CONFIG 覆盖）")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")
	fs.BoolVar(&serve, "serve", false, "以只读状态 API 代替交互 shell")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	path := os.Getenv("TARNISH_CONFIG")
	if configFlag != "" {
		path = configFlag
	}
	if path == "" {
		path = "config.toml"
	}

	return cliOptions{
		configPath:  path,
		checkOnly:   checkOnly,
		showVersion: showVer,
		serve:       serve,
	}, nil
}

func startHTTPServer(ctx context.Context, cfg *config.Config, lib *library.Library, store cache.Store, logger *logrus.Logger) error {
	port := cfg.Server.ListenPort
	app, err := server.NewApp(server.AppOptions{
		Logger:     logger,
		ListenPort: port,
	})
	if err != nil {
		return err
	}
	routes.RegisterLibraryRoutes(app, lib)
	routes.RegisterCacheRoutes(app, store)

	go func() {
		<-ctx.Done()
		_ = app.Shutdown()
	}()

	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   port,
	}).Info("Fiber 服务启动")

	return app.Listen(fmt.Sprintf(":%d", port))
}
