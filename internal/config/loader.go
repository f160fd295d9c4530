package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const (
	DefaultPlatform  = "windows"
	DefaultHistory   = ".tarnish-history"
	DefaultPageURL   = "https://www.humblebundle.com/monthly/trove"
	DefaultChunkURL  = "https://www.humblebundle.com/api/v1/trove/chunk?index=%d"
	DefaultElementID = "webpack-monthly-trove-data"
	DefaultMaxPages  = 32
	DefaultPort      = 5080
)

// Load 读取并解析 TOML 配置文件，同时注入默认值与校验逻辑。
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.toml"
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := absolutize(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("trove.platform", DefaultPlatform)
	v.SetDefault("system.history", DefaultHistory)
	v.SetDefault("feed.page_url", DefaultPageURL)
	v.SetDefault("feed.chunk_url", DefaultChunkURL)
	v.SetDefault("feed.element_id", DefaultElementID)
	v.SetDefault("feed.max_pages", DefaultMaxPages)
	v.SetDefault("network.timeout", "0s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 10)
	v.SetDefault("log.compress", true)
	v.SetDefault("server.listen_port", DefaultPort)
}

// applyDefaults 兜底处理显式写成空值的字段。
func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Trove.Platform) == "" {
		cfg.Trove.Platform = DefaultPlatform
	}
	cfg.Trove.Platform = strings.ToLower(strings.TrimSpace(cfg.Trove.Platform))
	if cfg.System.History == "" {
		cfg.System.History = DefaultHistory
	}
	if cfg.Feed.PageURL == "" {
		cfg.Feed.PageURL = DefaultPageURL
	}
	if cfg.Feed.ChunkURL == "" {
		cfg.Feed.ChunkURL = DefaultChunkURL
	}
	if cfg.Feed.ElementID == "" {
		cfg.Feed.ElementID = DefaultElementID
	}
	if cfg.Feed.MaxPages == 0 {
		cfg.Feed.MaxPages = DefaultMaxPages
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Server.ListenPort == 0 {
		cfg.Server.ListenPort = DefaultPort
	}
}

func absolutize(cfg *Config) error {
	paths := []struct {
		field string
		value *string
	}{
		{"trove.root", &cfg.Trove.Root},
		{"system.downloads", &cfg.System.Downloads},
		{"system.cache", &cfg.System.Cache},
	}
	for _, p := range paths {
		abs, err := filepath.Abs(*p.value)
		if err != nil {
			return fmt.Errorf("无法解析路径 %s: %w", p.field, err)
		}
		*p.value = abs
	}
	return nil
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(Duration(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			if v == "" {
				return Duration(0), nil
			}
			if parsed, err := time.ParseDuration(v); err == nil {
				return Duration(parsed), nil
			}
			if seconds, err := strconv.ParseFloat(v, 64); err == nil {
				return Duration(time.Duration(seconds * float64(time.Second))), nil
			}
			return nil, fmt.Errorf("无法解析 Duration 字段: %s", v)
		case int:
			return Duration(time.Duration(v) * time.Second), nil
		case int64:
			return Duration(time.Duration(v) * time.Second), nil
		case float64:
			return Duration(time.Duration(v * float64(time.Second))), nil
		case time.Duration:
			return Duration(v), nil
		case Duration:
			return v, nil
		default:
			return nil, fmt.Errorf("不支持的 Duration 类型: %T", v)
		}
	}
}
