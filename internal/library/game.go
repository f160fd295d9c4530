package library

import (
	"net/url"
	"path"
	"strings"

	"github.com/tarnish-app/tarnish/internal/feed"
)

// Game 是 feed 条目在本地库中的视图。Downloaded 为派生字段，从不持久化。
type Game struct {
	MachineName  string            `json:"machine_name"`
	HumanName    string            `json:"human_name"`
	Description  string            `json:"description"`
	DateAdded    int64             `json:"date_added"`
	Downloaded   bool              `json:"downloaded"`
	DownloadURLs map[string]string `json:"download_urls"`
	Installers   map[string]string `json:"installers"`
	Checksums    map[string]string `json:"md5"`
	FileSizes    map[string]uint64 `json:"file_size"`
	Image        string            `json:"image,omitempty"`
	Logo         string            `json:"logo,omitempty"`
	Thumbnails   []string          `json:"thumbnails,omitempty"`
	Screenshots  []string          `json:"screenshots,omitempty"`
	Trailer      string            `json:"trailer,omitempty"`
	Publishers   []string          `json:"publishers,omitempty"`
	Popularity   int               `json:"popularity"`
}

func newGame(p feed.Product) *Game {
	game := &Game{
		MachineName:  p.MachineName,
		HumanName:    p.HumanName,
		Description:  p.DescriptionText,
		DateAdded:    p.DateAdded,
		DownloadURLs: make(map[string]string, len(p.Downloads)),
		Installers:   make(map[string]string, len(p.Downloads)),
		Checksums:    make(map[string]string, len(p.Downloads)),
		FileSizes:    make(map[string]uint64, len(p.Downloads)),
		Image:        p.ImageURL(),
		Logo:         p.LogoURL(),
		Thumbnails:   append([]string(nil), p.CarouselContent.Thumbnail...),
		Screenshots:  append([]string(nil), p.CarouselContent.Screenshot...),
		Trailer:      p.Trailer(),
		Publishers:   p.Publishers.Names(),
		Popularity:   p.Popularity,
	}
	for platform, download := range p.Downloads {
		game.DownloadURLs[platform] = download.URL.Web
		if name := urlFilename(download.URL.Web); name != "" {
			game.Installers[platform] = name
		}
		game.Checksums[platform] = download.MD5
		game.FileSizes[platform] = download.FileSize
	}
	return game
}

// Installer 返回指定平台安装包的期望文件名，没有该平台下载时为空串。
func (g Game) Installer(platform string) string {
	return g.Installers[platform]
}

// urlFilename 取下载地址路径的最后一段作为本地文件名。
func urlFilename(raw string) string {
	p := raw
	if parsed, err := url.Parse(raw); err == nil {
		p = parsed.Path
	}
	name := path.Base(p)
	if name == "." || name == "/" || name == "" {
		return ""
	}
	return name
}

// urlExtension 返回地址路径的扩展名（不含点），无法解析时为空串。
func urlExtension(raw string) string {
	name := urlFilename(raw)
	ext := strings.TrimPrefix(path.Ext(name), ".")
	return ext
}
