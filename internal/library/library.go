package library

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/tarnish-app/tarnish/internal/feed"
	"github.com/tarnish-app/tarnish/internal/logging"
)

// ErrRootMissing 表示必须预先存在的目录不存在。
var ErrRootMissing = errors.New("required directory does not exist")

// Retriever 以缓存优先的方式返回 key 对应的字节正文。
type Retriever interface {
	Retrieve(ctx context.Context, key string) ([]byte, error)
}

// Options 描述对账涉及的两个文件系统根目录与跟踪的平台。
type Options struct {
	// Root 是规范库目录，安装包最终存放位置，metadata 子目录也在其下。
	Root string
	// Downloads 是浏览器下载落地的暂存目录。
	Downloads string
	// Platform 是用来判断下载状态的平台键，例如 windows。
	Platform string
}

// Stats 是一次状态刷新后的汇总计数。
type Stats struct {
	NumberDownloaded int `json:"number_downloaded"`
	Total            int `json:"total"`
}

// Library 持有当前快照中的全部条目及其派生的 downloaded 状态。
// 状态刷新总是全量重算，不做增量维护。
type Library struct {
	opts      Options
	retriever Retriever
	logger    *logrus.Logger

	mu         sync.RWMutex
	games      map[string]*Game
	order      []string
	newlyAdded []string
	stats      Stats
}

// New 由 feed 快照构建 Library，要求规范库目录已存在，并立即执行一次状态刷新。
func New(opts Options, snapshot *feed.Feed, retriever Retriever, logger *logrus.Logger) (*Library, error) {
	if snapshot == nil {
		return nil, errors.New("feed snapshot is required")
	}
	if opts.Platform == "" {
		return nil, errors.New("platform is required")
	}
	if err := requireDir(opts.Root); err != nil {
		return nil, err
	}

	lib := &Library{
		opts:      opts,
		retriever: retriever,
		logger:    logging.OrDiscard(logger),
		games:     make(map[string]*Game, len(snapshot.StandardProducts)),
	}

	products := append([]feed.Product(nil), snapshot.StandardProducts...)
	feed.SortByDateAdded(products)
	for _, product := range products {
		game := newGame(product)
		if !validMachineName(game.MachineName) {
			lib.logger.WithFields(logging.GameFields("library_invalid_name", game.MachineName)).Warn("machine_name is not a safe file name, skipping")
			continue
		}
		if _, dup := lib.games[game.MachineName]; dup {
			lib.logger.WithFields(logging.GameFields("library_duplicate", game.MachineName)).Warn("duplicate machine_name in feed, keeping first")
			continue
		}
		if game.Installer(opts.Platform) == "" {
			lib.logger.WithFields(logging.GameFields("library_missing_platform", game.MachineName)).
				WithField("platform", opts.Platform).
				Warn("entry has no download for tracked platform")
		}
		lib.games[game.MachineName] = game
		lib.order = append(lib.order, game.MachineName)
	}
	for _, product := range snapshot.NewlyAdded {
		lib.newlyAdded = append(lib.newlyAdded, product.MachineName)
	}

	lib.UpdateDownloadStatus()
	return lib, nil
}

// Options 返回构建时使用的目录配置。
func (l *Library) Options() Options {
	return l.opts
}

// UpdateDownloadStatus 对每个条目检查 Root/<installer> 是否存在并重算计数。
// 复杂度 O(n)，可重复调用。
func (l *Library) UpdateDownloadStatus() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	count := 0
	for _, name := range l.order {
		game := l.games[name]
		installer := game.Installer(l.opts.Platform)
		game.Downloaded = false
		if installer != "" {
			ok, err := fileExists(filepath.Join(l.opts.Root, installer))
			if err != nil {
				l.logger.WithFields(logging.GameFields("library_status", name)).WithError(err).Warn("stat installer failed")
			}
			game.Downloaded = ok
		}
		if game.Downloaded {
			count++
		}
	}
	l.stats = Stats{NumberDownloaded: count, Total: len(l.order)}
	return l.stats
}

// Stats 返回最近一次状态刷新的计数。
func (l *Library) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.stats
}

// Games 按快照顺序（date-added 倒序）返回全部条目的副本。
func (l *Library) Games() []Game {
	return l.filter(func(*Game) bool { return true })
}

// Downloaded 返回已存在于规范库目录中的条目。
func (l *Library) Downloaded() []Game {
	return l.filter(func(g *Game) bool { return g.Downloaded })
}

// NotDownloaded 返回尚未落入规范库目录的条目。
func (l *Library) NotDownloaded() []Game {
	return l.filter(func(g *Game) bool { return !g.Downloaded })
}

// NewlyAdded 返回 feed 中 "newly added" 子集对应的条目视图。
func (l *Library) NewlyAdded() []Game {
	l.mu.RLock()
	defer l.mu.RUnlock()
	result := make([]Game, 0, len(l.newlyAdded))
	for _, name := range l.newlyAdded {
		if game, ok := l.games[name]; ok {
			result = append(result, *game)
		}
	}
	return result
}

// Lookup 根据 machine_name 查找条目。
func (l *Library) Lookup(machineName string) (Game, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	game, ok := l.games[machineName]
	if !ok {
		return Game{}, false
	}
	return *game, true
}

// Format 输出交互列表使用的单行描述。
func (l *Library) Format(g Game) string {
	return fmt.Sprintf("%d %s %t", g.DateAdded, g.HumanName, g.Downloaded)
}

func (l *Library) filter(keep func(*Game) bool) []Game {
	l.mu.RLock()
	defer l.mu.RUnlock()
	result := make([]Game, 0, len(l.order))
	for _, name := range l.order {
		game := l.games[name]
		if keep(game) {
			result = append(result, *game)
		}
	}
	return result
}

// validMachineName 报告 machine_name 能否安全地用作 metadata 目录下的文件名前缀。
func validMachineName(name string) bool {
	if name == "" || strings.Contains(name, "..") {
		return false
	}
	return !strings.ContainsAny(name, `/\`+string(filepath.Separator))
}

func requireDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrRootMissing, dir)
		}
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrRootMissing, dir)
	}
	return nil
}

func fileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}
