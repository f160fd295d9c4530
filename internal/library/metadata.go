package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/google/renameio/v2"
	"github.com/sirupsen/logrus"
)

// MetadataDir 是规范库目录下存放图片与条目描述的子目录名。
const MetadataDir = "metadata"

// ErrNoExtension 表示媒体地址无法推断出文件扩展名。
var ErrNoExtension = errors.New("url has no file extension")

// MetadataReport 汇总 CacheAllMetadata 的写入与跳过数量。
type MetadataReport struct {
	Written int `json:"written"`
	Skipped int `json:"skipped"`
}

type metadataTarget struct {
	url      string
	filename func(ext string) string
}

// CacheAllMetadata 为每个条目写出 <name>.json 以及主图、logo、缩略图和截图。
// 缺少扩展名或单项失败时统一记录告警并继续，结束后返回聚合错误。
func (l *Library) CacheAllMetadata(ctx context.Context) (MetadataReport, error) {
	metadataRoot := filepath.Join(l.opts.Root, MetadataDir)
	if err := requireDir(metadataRoot); err != nil {
		return MetadataReport{}, err
	}
	if l.retriever == nil {
		return MetadataReport{}, errors.New("metadata caching requires a retriever")
	}

	var (
		report MetadataReport
		errs   []error
	)
	for _, game := range l.Games() {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		if err := writeGameJSON(metadataRoot, game); err != nil {
			report.Skipped++
			errs = append(errs, err)
		} else {
			report.Written++
		}

		for _, target := range metadataTargets(game) {
			fields := logrus.Fields{"action": "cache_metadata", "machine_name": game.MachineName, "url": target.url}
			ext := urlExtension(target.url)
			if ext == "" {
				l.logger.WithFields(fields).Warn("media url has no extension, skipping")
				report.Skipped++
				errs = append(errs, fmt.Errorf("%s: %w: %s", game.MachineName, ErrNoExtension, target.url))
				continue
			}

			payload, err := l.retriever.Retrieve(ctx, target.url)
			if err != nil {
				l.logger.WithFields(fields).WithError(err).Warn("retrieve media failed")
				report.Skipped++
				errs = append(errs, fmt.Errorf("%s: %w", game.MachineName, err))
				continue
			}

			path := filepath.Join(metadataRoot, target.filename(ext))
			if err := renameio.WriteFile(path, payload, 0o644); err != nil {
				l.logger.WithFields(fields).WithError(err).Warn("write media failed")
				report.Skipped++
				errs = append(errs, fmt.Errorf("%s: write %s: %w", game.MachineName, path, err))
				continue
			}
			report.Written++
		}
	}

	l.logger.WithFields(logrus.Fields{
		"action":  "cache_metadata",
		"written": report.Written,
		"skipped": report.Skipped,
	}).Info("metadata cached")
	return report, errors.Join(errs...)
}

// CacheImages 预热所有条目主图与 logo 的缓存。
func (l *Library) CacheImages(ctx context.Context) (int, error) {
	return l.warm(ctx, "cache_images", func(g Game) []string {
		var urls []string
		if g.Image != "" {
			urls = append(urls, g.Image)
		}
		if g.Logo != "" {
			urls = append(urls, g.Logo)
		}
		return urls
	})
}

// CacheThumbnails 预热所有缩略图的缓存。
func (l *Library) CacheThumbnails(ctx context.Context) (int, error) {
	return l.warm(ctx, "cache_thumbnails", func(g Game) []string { return g.Thumbnails })
}

// CacheScreenshots 预热所有截图的缓存。
func (l *Library) CacheScreenshots(ctx context.Context) (int, error) {
	return l.warm(ctx, "cache_screenshots", func(g Game) []string { return g.Screenshots })
}

func (l *Library) warm(ctx context.Context, action string, urls func(Game) []string) (int, error) {
	if l.retriever == nil {
		return 0, errors.New("cache warming requires a retriever")
	}
	var (
		cached int
		errs   []error
	)
	for _, game := range l.Games() {
		for _, url := range urls(game) {
			if err := ctx.Err(); err != nil {
				return cached, errors.Join(append(errs, err)...)
			}
			fields := logrus.Fields{"action": action, "machine_name": game.MachineName, "url": url}
			if _, err := l.retriever.Retrieve(ctx, url); err != nil {
				l.logger.WithFields(fields).WithError(err).Warn("cache warm failed")
				errs = append(errs, fmt.Errorf("%s: %w", game.MachineName, err))
				continue
			}
			l.logger.WithFields(fields).Debug("cached")
			cached++
		}
	}
	return cached, errors.Join(errs...)
}

func metadataTargets(game Game) []metadataTarget {
	name := game.MachineName
	var targets []metadataTarget
	if game.Image != "" {
		targets = append(targets, metadataTarget{url: game.Image, filename: func(ext string) string {
			return fmt.Sprintf("%s.%s", name, ext)
		}})
	}
	if game.Logo != "" {
		targets = append(targets, metadataTarget{url: game.Logo, filename: func(ext string) string {
			return fmt.Sprintf("%s_logo.%s", name, ext)
		}})
	}
	for i, url := range game.Thumbnails {
		targets = append(targets, metadataTarget{url: url, filename: func(ext string) string {
			return fmt.Sprintf("%s_t%d.%s", name, i, ext)
		}})
	}
	for i, url := range game.Screenshots {
		targets = append(targets, metadataTarget{url: url, filename: func(ext string) string {
			return fmt.Sprintf("%s_s%d.%s", name, i, ext)
		}})
	}
	return targets
}

func writeGameJSON(dir string, game Game) error {
	// downloaded 是派生状态，不写入磁盘。
	record := struct {
		Game
		Downloaded *bool `json:"downloaded,omitempty"`
	}{Game: game}
	encoded, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("%s: encode metadata: %w", game.MachineName, err)
	}
	path := filepath.Join(dir, game.MachineName+".json")
	if err := renameio.WriteFile(path, append(encoded, '\n'), 0o644); err != nil {
		return fmt.Errorf("%s: write %s: %w", game.MachineName, path, err)
	}
	return nil
}
