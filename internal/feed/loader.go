package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/tarnish-app/tarnish/internal/config"
	"github.com/tarnish-app/tarnish/internal/logging"
)

// ErrElementNotFound 表示 HTML 页面中没有找到内嵌数据节点。
var ErrElementNotFound = errors.New("embedded feed element not found")

// Retriever 以缓存优先的方式返回 key 对应的文本正文。
type Retriever interface {
	RetrieveText(ctx context.Context, key string) (string, error)
}

// Options 描述 feed 的来源，与 [feed] 配置段一致。ChunkURL 中的 %d 是页码占位符。
type Options = config.FeedConfig

// Load 抓取 HTML 页面并解析其中内嵌的 Feed，再按页顺序抓取 StandardProducts，
// 遇到空页或达到 MaxPages 时停止；结果按 date-added 倒序排列。
func Load(ctx context.Context, r Retriever, opts Options, logger *logrus.Logger) (*Feed, error) {
	logger = logging.OrDiscard(logger)

	page, err := r.RetrieveText(ctx, opts.PageURL)
	if err != nil {
		return nil, fmt.Errorf("fetch feed page: %w", err)
	}
	data, err := ExtractEmbedded(page, opts.ElementID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opts.PageURL, err)
	}

	var feed Feed
	if err := json.Unmarshal([]byte(data), &feed); err != nil {
		return nil, fmt.Errorf("decode embedded feed from %s: %w", opts.PageURL, err)
	}

	products, err := LoadProducts(ctx, r, opts, logger)
	if err != nil {
		return nil, err
	}
	feed.StandardProducts = products

	logger.WithFields(logrus.Fields{
		"action":      "feed_loaded",
		"products":    len(feed.StandardProducts),
		"newly_added": len(feed.NewlyAdded),
	}).Info("feed loaded")
	return &feed, nil
}

// LoadProducts 顺序抓取 chunk 页面并拼接。
func LoadProducts(ctx context.Context, r Retriever, opts Options, logger *logrus.Logger) ([]Product, error) {
	logger = logging.OrDiscard(logger)
	if opts.MaxPages <= 0 {
		return nil, fmt.Errorf("max pages must be positive, got %d", opts.MaxPages)
	}

	var products []Product
	exhausted := false
	for index := 0; index < opts.MaxPages; index++ {
		url := opts.ChunkPageURL(index)
		chunk, err := FetchPage(ctx, r, url)
		if err != nil {
			return nil, err
		}
		if len(chunk) == 0 {
			exhausted = true
			break
		}
		logger.WithFields(logrus.Fields{
			"action": "feed_page",
			"index":  index,
			"count":  len(chunk),
		}).Debug("feed page loaded")
		products = append(products, chunk...)
	}
	if !exhausted {
		logger.WithFields(logrus.Fields{
			"action":    "feed_page_cap",
			"max_pages": opts.MaxPages,
		}).Warn("feed page cap reached before an empty page; catalog may be truncated")
	}

	SortByDateAdded(products)
	return products, nil
}

// FetchPage 抓取并解码单个 chunk 页面。
func FetchPage(ctx context.Context, r Retriever, url string) ([]Product, error) {
	text, err := r.RetrieveText(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch feed chunk: %w", err)
	}
	var chunk []Product
	if err := json.Unmarshal([]byte(text), &chunk); err != nil {
		return nil, fmt.Errorf("decode feed chunk %s: %w", url, err)
	}
	return chunk, nil
}

// ExtractEmbedded 返回 id 为 elementID 的节点的文本内容。
func ExtractEmbedded(html, elementID string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	selection := doc.Find(fmt.Sprintf("[id=%q]", elementID)).First()
	if selection.Length() == 0 {
		return "", fmt.Errorf("%w: #%s", ErrElementNotFound, elementID)
	}
	return selection.Text(), nil
}

// SortByDateAdded 按 date-added 倒序排列，同一时间按 machine_name 升序保证顺序稳定。
func SortByDateAdded(products []Product) {
	sort.SliceStable(products, func(i, j int) bool {
		if products[i].DateAdded != products[j].DateAdded {
			return products[i].DateAdded > products[j].DateAdded
		}
		return products[i].MachineName < products[j].MachineName
	})
}
