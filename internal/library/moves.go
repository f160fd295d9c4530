package library

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"github.com/sirupsen/logrus"
)

// UnmovedReason 说明暂存文件未被迁移的原因。
type UnmovedReason string

const (
	ReasonConflict     UnmovedReason = "destination_exists"
	ReasonStatFailed   UnmovedReason = "stat_failed"
	ReasonCopyFailed   UnmovedReason = "copy_failed"
	ReasonRemoveFailed UnmovedReason = "remove_failed"
)

// 测试中替换以模拟单个文件的复制或删除失败。
var (
	copyStaged   = copyFile
	removeStaged = os.Remove
)

// Unmoved 记录一个仍留在暂存目录中的文件。
type Unmoved struct {
	Path   string        `json:"path"`
	Reason UnmovedReason `json:"reason"`
	Err    string        `json:"error,omitempty"`
}

// MoveReport 汇总一次 MoveDownloads 的结果。
type MoveReport struct {
	Moved   []string  `json:"moved"`
	Unmoved []Unmoved `json:"unmoved"`
}

// StrayDownloads 返回暂存目录中文件名与某个条目期望安装包名一致的文件。
func (l *Library) StrayDownloads() ([]string, error) {
	if err := requireDir(l.opts.Downloads); err != nil {
		return nil, err
	}

	l.mu.RLock()
	installers := make([]string, 0, len(l.order))
	for _, name := range l.order {
		if installer := l.games[name].Installer(l.opts.Platform); installer != "" {
			installers = append(installers, installer)
		}
	}
	l.mu.RUnlock()

	seen := make(map[string]struct{}, len(installers))
	var strays []string
	for _, installer := range installers {
		if _, ok := seen[installer]; ok {
			continue
		}
		seen[installer] = struct{}{}
		candidate := filepath.Join(l.opts.Downloads, installer)
		ok, err := fileExists(candidate)
		if err != nil {
			l.logger.WithFields(logrus.Fields{"action": "stray_scan", "path": candidate}).WithError(err).Warn("stat staging file failed")
			continue
		}
		if ok {
			strays = append(strays, candidate)
		}
	}
	return strays, nil
}

// MoveDownloads 将每个暂存安装包复制到规范库目录后删除暂存副本。目标已存在时跳过，
// 单个文件失败只记录日志并继续处理其余文件。调用方需要再执行一次 UpdateDownloadStatus。
func (l *Library) MoveDownloads() (MoveReport, error) {
	strays, err := l.StrayDownloads()
	if err != nil {
		return MoveReport{}, err
	}

	var report MoveReport
	for _, src := range strays {
		dest := filepath.Join(l.opts.Root, filepath.Base(src))
		fields := logrus.Fields{"action": "move_download", "src": src, "dest": dest}

		exists, err := fileExists(dest)
		if err != nil {
			l.logger.WithFields(fields).WithError(err).Warn("stat destination failed, skipping")
			report.Unmoved = append(report.Unmoved, unmoved(src, ReasonStatFailed, err))
			continue
		}
		if exists {
			l.logger.WithFields(fields).Warn("destination exists, skipping")
			report.Unmoved = append(report.Unmoved, unmoved(src, ReasonConflict, nil))
			continue
		}

		if err := copyStaged(src, dest); err != nil {
			l.logger.WithFields(fields).WithError(err).Warn("copy failed, leaving file in staging")
			report.Unmoved = append(report.Unmoved, unmoved(src, ReasonCopyFailed, err))
			continue
		}
		if err := removeStaged(src); err != nil {
			l.logger.WithFields(fields).WithError(err).Warn("remove staging copy failed")
			report.Unmoved = append(report.Unmoved, unmoved(src, ReasonRemoveFailed, err))
			continue
		}

		l.logger.WithFields(fields).Info("moved download")
		report.Moved = append(report.Moved, dest)
	}
	return report, nil
}

func unmoved(path string, reason UnmovedReason, err error) Unmoved {
	entry := Unmoved{Path: path, Reason: reason}
	if err != nil {
		entry.Err = err.Error()
	}
	return entry
}

// copyFile 经由同目录临时文件 + rename 写入 dest，失败时不留下半截文件。
func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	pending, err := renameio.NewPendingFile(dest, renameio.WithPermissions(info.Mode().Perm()))
	if err != nil {
		return fmt.Errorf("create pending file: %w", err)
	}
	defer pending.Cleanup()

	if _, err := io.Copy(pending, in); err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace %s: %w", dest, err)
	}
	return nil
}
