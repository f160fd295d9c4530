package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/tarnish-app/tarnish/internal/cache"
	"github.com/tarnish-app/tarnish/internal/config"
	"github.com/tarnish-app/tarnish/internal/logging"
)

// troveStub 模拟目录页面、分页接口与图片 CDN，并统计回源次数。
type troveStub struct {
	*httptest.Server
	hits atomic.Int32
}

func newTroveStub(t *testing.T) *troveStub {
	t.Helper()
	stub := &troveStub{}
	stub.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stub.hits.Add(1)
		switch {
		case r.URL.Path == "/monthly/trove":
			fmt.Fprint(w, `<html><body><script id="webpack-monthly-trove-data" type="application/json">
{"allAccess": [], "downloadPlatformOrder": ["windows"], "newlyAdded": [], "displayItemData": {},
 "countdownTimerOptions": {"currentTime": "", "nextAdditionTime": ""}}
</script></body></html>`)
		case r.URL.Path == "/chunk" && r.URL.Query().Get("index") == "0":
			fmt.Fprintf(w, `[%s, %s]`, stubProduct(stub.URL, "alpha", 2), stubProduct(stub.URL, "beta", 1))
		case r.URL.Path == "/chunk":
			fmt.Fprint(w, `[]`)
		case strings.HasPrefix(r.URL.Path, "/img/"):
			fmt.Fprint(w, "image-bytes")
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(stub.Close)
	return stub
}

func stubProduct(base, name string, dateAdded int) string {
	return fmt.Sprintf(`{"machine_name": %[2]q, "human-name": %[2]q, "date-added": %[3]d,
 "image": "%[1]s/img/%[2]s.png", "logo": null, "marketing-blurb": null, "publishers": null,
 "carousel-content": {"thumbnail": [], "screenshot": []},
 "downloads": {"windows": {"url": {"web": "%[1]s/dl/%[2]s.exe", "bittorrent": null}, "file_size": 1, "md5": ""}}}`,
		base, name, dateAdded)
}

func stubConfig(t *testing.T, base string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		Trove:  config.TroveConfig{Root: filepath.Join(dir, "trove"), Platform: "windows"},
		System: config.SystemConfig{Downloads: filepath.Join(dir, "downloads"), Cache: filepath.Join(dir, "cache")},
		Feed: config.FeedConfig{
			PageURL:   base + "/monthly/trove",
			ChunkURL:  base + "/chunk?index=%d",
			ElementID: "webpack-monthly-trove-data",
			MaxPages:  4,
		},
	}
	for _, path := range []string{cfg.Trove.Root, cfg.System.Downloads} {
		if err := os.MkdirAll(path, 0o755); err != nil {
			t.Fatalf("创建目录失败: %v", err)
		}
	}
	return cfg
}

func TestBootstrapReconcilesStagedInstallers(t *testing.T) {
	stub := newTroveStub(t)
	cfg := stubConfig(t, stub.URL)
	if err := os.WriteFile(filepath.Join(cfg.System.Downloads, "beta.exe"), []byte("b"), 0o644); err != nil {
		t.Fatalf("写入暂存文件失败: %v", err)
	}

	useBufferWriters(t)
	svc, err := bootstrap(context.Background(), cfg, logging.Discard())
	if err != nil {
		t.Fatalf("bootstrap 失败: %v", err)
	}

	stats := svc.library.Stats()
	if stats.Total != 2 || stats.NumberDownloaded != 1 {
		t.Fatalf("期望 1/2 已下载，得到 %+v", stats)
	}
	if _, err := os.Stat(filepath.Join(cfg.Trove.Root, "beta.exe")); err != nil {
		t.Fatalf("暂存安装包应迁入规范库: %v", err)
	}
	out := stdOutBuffer().String()
	if !strings.Contains(out, "In downloads: 1") || !strings.Contains(out, "Downloaded: 1; Total: 2") {
		t.Fatalf("启动输出不符合预期: %q", out)
	}

	key := stub.URL + "/img/alpha.png"
	provenance, err := svc.store.Provenance(context.Background(), cache.Fingerprint(key))
	if err != nil || provenance != key {
		t.Fatalf("主图应写入缓存，得到 %q, %v", provenance, err)
	}
}

func TestBootstrapServesSecondRunFromCache(t *testing.T) {
	stub := newTroveStub(t)
	cfg := stubConfig(t, stub.URL)

	useBufferWriters(t)
	if _, err := bootstrap(context.Background(), cfg, logging.Discard()); err != nil {
		t.Fatalf("首次 bootstrap 失败: %v", err)
	}
	first := stub.hits.Load()
	if first == 0 {
		t.Fatalf("首次启动应当回源")
	}

	if _, err := bootstrap(context.Background(), cfg, logging.Discard()); err != nil {
		t.Fatalf("二次 bootstrap 失败: %v", err)
	}
	if stub.hits.Load() != first {
		t.Fatalf("二次启动不应回源，回源次数 %d -> %d", first, stub.hits.Load())
	}
}

func TestBootstrapFailsWithoutLibraryRoot(t *testing.T) {
	stub := newTroveStub(t)
	cfg := stubConfig(t, stub.URL)
	if err := os.RemoveAll(cfg.Trove.Root); err != nil {
		t.Fatalf("删除目录失败: %v", err)
	}

	useBufferWriters(t)
	if _, err := bootstrap(context.Background(), cfg, logging.Discard()); err == nil {
		t.Fatalf("规范库目录缺失时应失败")
	}
}
