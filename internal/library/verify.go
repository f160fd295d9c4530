package library

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// Mismatch 记录一个校验和与 feed 不一致的安装包。
type Mismatch struct {
	MachineName string `json:"machine_name"`
	Path        string `json:"path"`
	Expected    string `json:"expected"`
	Actual      string `json:"actual"`
}

// VerifyDownloads 计算已下载安装包的 md5 并与 feed 中的值比对。
// feed 未提供 md5 的条目跳过；读取失败聚合为错误返回。
func (l *Library) VerifyDownloads() ([]Mismatch, error) {
	var (
		mismatches []Mismatch
		errs       []error
	)
	for _, game := range l.Downloaded() {
		expected := strings.ToLower(strings.TrimSpace(game.Checksums[l.opts.Platform]))
		if expected == "" {
			continue
		}
		path := filepath.Join(l.opts.Root, game.Installer(l.opts.Platform))
		actual, err := md5File(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", game.MachineName, err))
			continue
		}
		if actual != expected {
			l.logger.WithFields(logrus.Fields{
				"action":       "verify_download",
				"machine_name": game.MachineName,
				"expected":     expected,
				"actual":       actual,
			}).Warn("checksum mismatch")
			mismatches = append(mismatches, Mismatch{
				MachineName: game.MachineName,
				Path:        path,
				Expected:    expected,
				Actual:      actual,
			})
		}
	}
	return mismatches, errors.Join(errs...)
}

func md5File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
