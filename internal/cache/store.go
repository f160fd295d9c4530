package cache

import (
	"context"
	"errors"
	"time"
)

// Store 负责管理磁盘缓存的读写。磁盘布局遵循：
//
//	<root>/<digest>       # 响应正文
//	<root>/<digest>.url   # 原始 key，仅用于溯源与冲突检测
//	<root>/.lock          # 跨进程写锁
//
// 条目一经写入不再修改。
type Store interface {
	// Get 返回 digest 对应的完整正文。若不存在则返回 ErrNotFound。
	Get(ctx context.Context, digest string) ([]byte, error)

	// Put 以 create-if-absent 语义写入正文与 sidecar。若条目已由其他写者创建，
	// 返回已有条目且 Entry.Created 为 false；sidecar 中的 key 与传入 key 不同
	// 时返回 ErrDigestCollision。
	Put(ctx context.Context, digest, key string, payload []byte) (*Entry, error)

	// Has 报告正文文件是否存在。
	Has(ctx context.Context, digest string) (bool, error)

	// Provenance 读取 sidecar 中记录的原始 key。
	Provenance(ctx context.Context, digest string) (string, error)

	// Root 返回缓存根目录的绝对路径。
	Root() string
}

// Entry 描述一次写入或命中的缓存条目。
type Entry struct {
	Digest    string    `json:"digest"`
	Key       string    `json:"key"`
	FilePath  string    `json:"file_path"`
	SizeBytes int64     `json:"size_bytes"`
	ModTime   time.Time `json:"mod_time"`
	Created   bool      `json:"created"`
}

var (
	// ErrNotFound 表示缓存不存在。
	ErrNotFound = errors.New("cache entry not found")
	// ErrInvalidDigest 表示 digest 不是合法的十六进制摘要。
	ErrInvalidDigest = errors.New("invalid cache digest")
	// ErrDigestCollision 表示同一 digest 已记录了不同的 key。
	ErrDigestCollision = errors.New("cache digest collision")
	// ErrUnexpectedStatus 表示上游返回了非 2xx 状态码。
	ErrUnexpectedStatus = errors.New("unexpected upstream status")
	// ErrInvalidUTF8 表示正文不是合法的 UTF-8 文本。
	ErrInvalidUTF8 = errors.New("payload is not valid utf-8")
)
