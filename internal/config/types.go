package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const chunkPlaceholder = "%d"

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "30s"、"5m" 或纯数字秒值等配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}

	if intVal, err := parseInt(raw); err == nil {
		*d = Duration(time.Duration(intVal) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// parseInt 支持十进制或 0x 前缀的十六进制字符串解析。
func parseInt(value string) (int64, error) {
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		return strconv.ParseInt(value, 0, 64)
	}
	return strconv.ParseInt(value, 10, 64)
}

// TroveConfig 描述规范库目录（安装包最终存放位置）。
type TroveConfig struct {
	Root     string `mapstructure:"root"`
	Platform string `mapstructure:"platform"`
}

// SystemConfig 描述本机相关路径：浏览器下载目录、HTTP 缓存目录与命令历史。
type SystemConfig struct {
	Downloads string `mapstructure:"downloads"`
	Cache     string `mapstructure:"cache"`
	History   string `mapstructure:"history"`
}

// FeedConfig 控制目录 feed 的来源地址与分页上限。
type FeedConfig struct {
	PageURL   string `mapstructure:"page_url"`
	ChunkURL  string `mapstructure:"chunk_url"`
	ElementID string `mapstructure:"element_id"`
	MaxPages  int    `mapstructure:"max_pages"`
}

// NetworkConfig 控制回源 HTTP 客户端；Timeout 为 0 时只使用 transport 自身的超时。
type NetworkConfig struct {
	Timeout Duration `mapstructure:"timeout"`
}

// LogConfig 描述日志级别与可选的滚动文件输出。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// ServerConfig 描述只读状态 API 的监听端口。
type ServerConfig struct {
	ListenPort int `mapstructure:"listen_port"`
}

// Config 是 TOML 文件映射的整体结构，启动时加载一次，之后只读。
type Config struct {
	Trove   TroveConfig   `mapstructure:"trove"`
	System  SystemConfig  `mapstructure:"system"`
	Feed    FeedConfig    `mapstructure:"feed"`
	Network NetworkConfig `mapstructure:"network"`
	Log     LogConfig     `mapstructure:"log"`
	Server  ServerConfig  `mapstructure:"server"`
}

// ChunkPageURL 返回第 index 页的 chunk 地址。只替换第一个 %d，URL 中其余的 % 原样保留。
func (f FeedConfig) ChunkPageURL(index int) string {
	return strings.Replace(f.ChunkURL, chunkPlaceholder, strconv.Itoa(index), 1)
}
