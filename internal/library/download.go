package library

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"

	"github.com/google/renameio/v2"
	"github.com/sirupsen/logrus"
)

var (
	// ErrNotDownloadable 表示条目没有可直接下载的绝对地址。
	ErrNotDownloadable = errors.New("entry has no downloadable url for platform")
	// ErrAlreadyStaged 表示暂存目录中已有同名文件。
	ErrAlreadyStaged = errors.New("installer already present in staging")
)

// Download 将条目的安装包完整下载到暂存目录，返回落地路径。不支持断点续传。
func (l *Library) Download(ctx context.Context, client *http.Client, game Game) (string, error) {
	if err := requireDir(l.opts.Downloads); err != nil {
		return "", err
	}
	raw := game.DownloadURLs[l.opts.Platform]
	installer := game.Installer(l.opts.Platform)
	parsed, err := url.Parse(raw)
	if raw == "" || installer == "" || err != nil || !parsed.IsAbs() {
		return "", fmt.Errorf("%w: %s", ErrNotDownloadable, game.MachineName)
	}

	dest := filepath.Join(l.opts.Downloads, installer)
	exists, err := fileExists(dest)
	if err != nil {
		return "", err
	}
	if exists {
		return "", fmt.Errorf("%w: %s", ErrAlreadyStaged, dest)
	}

	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, raw, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("download %s: status %d", raw, resp.StatusCode)
	}

	pending, err := renameio.NewPendingFile(dest, renameio.WithPermissions(0o644))
	if err != nil {
		return "", err
	}
	defer pending.Cleanup()

	written, err := io.Copy(pending, resp.Body)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", raw, err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return "", err
	}

	l.logger.WithFields(logrus.Fields{
		"action":       "download",
		"machine_name": game.MachineName,
		"path":         dest,
		"bytes":        written,
	}).Info("installer downloaded to staging")
	return dest, nil
}
