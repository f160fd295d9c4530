package config

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	cfgPath := testConfigPath(t, "valid.toml")

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load 返回错误: %v", err)
	}
	if cfg.Trove.Platform != DefaultPlatform {
		t.Fatalf("platform 应该自动填充默认值，得到 %q", cfg.Trove.Platform)
	}
	if cfg.Feed.MaxPages != DefaultMaxPages {
		t.Fatalf("max_pages 应该自动填充默认值，得到 %d", cfg.Feed.MaxPages)
	}
	if cfg.Feed.ElementID != DefaultElementID {
		t.Fatalf("element_id 默认值错误: %q", cfg.Feed.ElementID)
	}
	if cfg.System.History != DefaultHistory {
		t.Fatalf("history 默认值错误: %q", cfg.System.History)
	}
	if cfg.Network.Timeout.DurationValue() != 45*time.Second {
		t.Fatalf("timeout 解析错误: %v", cfg.Network.Timeout.DurationValue())
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("log.level 应被保留")
	}
	if !filepath.IsAbs(cfg.Trove.Root) || !filepath.IsAbs(cfg.System.Cache) || !filepath.IsAbs(cfg.System.Downloads) {
		t.Fatalf("路径应转换为绝对路径: %+v", cfg)
	}
	if cfg.Server.ListenPort != DefaultPort {
		t.Fatalf("listen_port 默认值错误: %d", cfg.Server.ListenPort)
	}
}

func TestLoadRejectsMissingFields(t *testing.T) {
	_, err := Load(testConfigPath(t, "missing.toml"))
	if err == nil {
		t.Fatalf("缺失字段的配置应返回错误")
	}
	var fieldErr FieldError
	if !errors.As(err, &fieldErr) {
		t.Fatalf("应返回 FieldError，得到 %T", err)
	}
	if fieldErr.Field != "trove.root" {
		t.Fatalf("应指出 trove.root，得到 %s", fieldErr.Field)
	}
}

func TestValidatePlatform(t *testing.T) {
	testCases := []struct {
		name      string
		platform  string
		shouldErr bool
	}{
		{"windows ok", "windows", false},
		{"mac ok", "mac", false},
		{"linux ok", "linux", false},
		{"unsupported", "android", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Trove.Platform = tc.platform
			err := cfg.Validate()
			if tc.shouldErr && err == nil {
				t.Fatalf("expected error for platform %q", tc.platform)
			}
			if !tc.shouldErr && err != nil {
				t.Fatalf("unexpected error for platform %q: %v", tc.platform, err)
			}
		})
	}
}

func TestValidateChunkURLPlaceholder(t *testing.T) {
	cfg := validConfig()
	cfg.Feed.ChunkURL = "https://example.com/chunk"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("chunk_url 缺少 %%d 时应报错")
	}
}

func TestValidateRejectsNonHTTPPage(t *testing.T) {
	cfg := validConfig()
	cfg.Feed.PageURL = "ftp://example.com/trove"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("非 http 地址应报错")
	}
}

func TestValidateEnforcesListenPortRange(t *testing.T) {
	cfg := validConfig()
	cfg.Server.ListenPort = 70000
	if err := cfg.Validate(); err == nil {
		t.Fatalf("ListenPort 超出范围应当报错")
	}
}

func TestChunkPageURL(t *testing.T) {
	cfg := validConfig()
	if got := cfg.Feed.ChunkPageURL(3); got != "https://www.humblebundle.com/api/v1/trove/chunk?index=3" {
		t.Fatalf("unexpected chunk url: %s", got)
	}
}

func TestChunkPageURLKeepsOtherPercentSequences(t *testing.T) {
	cfg := validConfig()
	cfg.Feed.ChunkURL = "https://x.test/chunk?q=a%20b&index=%d&page=%d"
	if got := cfg.Feed.ChunkPageURL(0); got != "https://x.test/chunk?q=a%20b&index=0&page=%d" {
		t.Fatalf("只应替换第一个占位符，得到 %s", got)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("含百分号编码的 chunk_url 应通过校验: %v", err)
	}
}

func validConfig() *Config {
	return &Config{
		Trove:  TroveConfig{Root: "/data/trove", Platform: "windows"},
		System: SystemConfig{Downloads: "/data/downloads", Cache: "/data/cache", History: DefaultHistory},
		Feed: FeedConfig{
			PageURL:   DefaultPageURL,
			ChunkURL:  DefaultChunkURL,
			ElementID: DefaultElementID,
			MaxPages:  5,
		},
		Log:    LogConfig{Level: "info"},
		Server: ServerConfig{ListenPort: DefaultPort},
	}
}
