package feed

import "encoding/json"

// TimerOptions 描述下一次上新的倒计时。
type TimerOptions struct {
	CurrentTime      string `json:"currentTime"`
	NextAdditionTime string `json:"nextAdditionTime"`
}

// DownloadURL 是单个平台安装包的下载地址。
type DownloadURL struct {
	Web        string  `json:"web"`
	BitTorrent *string `json:"bittorrent"`
}

// Download 描述某个平台的安装包：地址、校验和与大小。
type Download struct {
	MachineName string      `json:"machine_name"`
	Name        string      `json:"name"`
	URL         DownloadURL `json:"url"`
	FileSize    uint64      `json:"file_size"`
	MD5         string      `json:"md5"`
	Size        *string     `json:"size"`
}

// CarouselContent 汇总条目的媒体素材。
type CarouselContent struct {
	YoutubeLink []string `json:"youtube-link"`
	Thumbnail   []string `json:"thumbnail"`
	Screenshot  []string `json:"screenshot"`
}

// Product 是 feed 中的一个条目，machine_name 在单次快照内唯一。
type Product struct {
	BackgroundImage  *string             `json:"background-image"`
	BackgroundColor  *string             `json:"background-color"`
	CarouselContent  CarouselContent     `json:"carousel-content"`
	DateAdded        int64               `json:"date-added"`
	DescriptionText  string              `json:"description-text"`
	Downloads        map[string]Download `json:"downloads"`
	HumanName        string              `json:"human-name"`
	HumbleOriginal   *bool               `json:"humble-original"`
	Image            *string             `json:"image"`
	Logo             *string             `json:"logo"`
	MachineName      string              `json:"machine_name"`
	MarketingBlurb   MarketingBlurb      `json:"marketing-blurb"`
	Popularity       int                 `json:"popularity"`
	Publishers       Publishers          `json:"publishers"`
	TroveShowcaseCSS *string             `json:"trove-showcase-css"`
	YoutubeLink      *string             `json:"youtube-link"`
}

// ImageURL 返回主图地址，缺失时为空串。
func (p Product) ImageURL() string {
	return deref(p.Image)
}

// LogoURL 返回 logo 地址，缺失时为空串。
func (p Product) LogoURL() string {
	return deref(p.Logo)
}

// Trailer 返回预告片地址，缺失时为空串。
func (p Product) Trailer() string {
	return deref(p.YoutubeLink)
}

// Feed 是目录快照：HTML 页面内嵌的 JSON 加上分页抓取的 StandardProducts。
type Feed struct {
	AllAccess             []string        `json:"allAccess"`
	DownloadPlatformOrder []string        `json:"downloadPlatformOrder"`
	NewlyAdded            []Product       `json:"newlyAdded"`
	DisplayItemData       json.RawMessage `json:"displayItemData"`
	CountdownTimerOptions TimerOptions    `json:"countdownTimerOptions"`
	StandardProducts      []Product       `json:"standardProducts"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
