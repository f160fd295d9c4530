package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var supportedPlatforms = map[string]struct{}{
	"windows": {},
	"mac":     {},
	"linux":   {},
}

const supportedPlatformList = "windows|mac|linux"

// Validate 针对语义级别做进一步校验，防止非法配置进入运行期。
// 目录是否存在不在此处检查，由 library 在使用时断言。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	if strings.TrimSpace(c.Trove.Root) == "" {
		return newFieldError("trove.root", "不能为空")
	}
	if _, ok := supportedPlatforms[c.Trove.Platform]; !ok {
		return newFieldError("trove.platform", "仅支持 "+supportedPlatformList)
	}
	if strings.TrimSpace(c.System.Downloads) == "" {
		return newFieldError("system.downloads", "不能为空")
	}
	if strings.TrimSpace(c.System.Cache) == "" {
		return newFieldError("system.cache", "不能为空")
	}

	if err := validateHTTPURL(c.Feed.PageURL); err != nil {
		return fmt.Errorf("feed.page_url: %w", err)
	}
	if !strings.Contains(c.Feed.ChunkURL, "%d") {
		return newFieldError("feed.chunk_url", "必须包含页码占位符 %d")
	}
	if err := validateHTTPURL(c.Feed.ChunkPageURL(0)); err != nil {
		return fmt.Errorf("feed.chunk_url: %w", err)
	}
	if strings.TrimSpace(c.Feed.ElementID) == "" {
		return newFieldError("feed.element_id", "不能为空")
	}
	if c.Feed.MaxPages <= 0 {
		return newFieldError("feed.max_pages", "必须大于 0")
	}

	if c.Network.Timeout.DurationValue() < 0 {
		return newFieldError("network.timeout", "不能为负数")
	}
	if c.Log.MaxSize < 0 {
		return newFieldError("log.max_size", "不能为负数")
	}
	if c.Log.MaxBackups < 0 {
		return newFieldError("log.max_backups", "不能为负数")
	}
	if c.Server.ListenPort <= 0 || c.Server.ListenPort > 65535 {
		return newFieldError("server.listen_port", "必须在 1-65535")
	}

	return nil
}

func validateHTTPURL(raw string) error {
	if raw == "" {
		return errors.New("缺少地址")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("仅支持 http/https: %s", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("缺少 Host: %s", raw)
	}
	return nil
}
