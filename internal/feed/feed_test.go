package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// mapRetriever 以 URL → 正文的映射模拟缓存，并记录访问顺序。
type mapRetriever struct {
	pages    map[string]string
	requests []string
}

func (m *mapRetriever) RetrieveText(_ context.Context, key string) (string, error) {
	m.requests = append(m.requests, key)
	body, ok := m.pages[key]
	if !ok {
		return "", fmt.Errorf("unexpected key %s", key)
	}
	return body, nil
}

const (
	testPageURL  = "https://trove.test/monthly/trove"
	testChunkURL = "https://trove.test/api/v1/trove/chunk?index=%d"
)

func testOptions(maxPages int) Options {
	return Options{
		PageURL:   testPageURL,
		ChunkURL:  testChunkURL,
		ElementID: "webpack-monthly-trove-data",
		MaxPages:  maxPages,
	}
}

func productJSON(name string, dateAdded int64) string {
	return fmt.Sprintf(`{
		"carousel-content": {"thumbnail": ["https://cdn.test/%[1]s_t.jpg"], "screenshot": ["https://cdn.test/%[1]s_s.jpg"]},
		"date-added": %[2]d,
		"description-text": "desc",
		"downloads": {"windows": {"machine_name": "%[1]s_windows", "name": "Windows", "url": {"web": "https://dl.test/%[1]s.exe", "bittorrent": null}, "file_size": 10, "md5": "abc", "size": null}},
		"human-name": "%[1]s",
		"image": "https://cdn.test/%[1]s.png",
		"machine_name": "%[1]s",
		"marketing-blurb": "plain blurb",
		"popularity": 1,
		"publishers": [{"publisher-name": "Pub", "publisher-uri": null}]
	}`, name, dateAdded)
}

func readFixture(t *testing.T, name string) string {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return string(raw)
}

func TestExtractEmbedded(t *testing.T) {
	data, err := ExtractEmbedded(readFixture(t, "trove.html"), "webpack-monthly-trove-data")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !strings.Contains(data, `"downloadPlatformOrder"`) {
		t.Fatalf("unexpected embedded payload: %s", data)
	}
}

func TestExtractEmbeddedMissingElement(t *testing.T) {
	_, err := ExtractEmbedded("<html><body><p>nothing</p></body></html>", "webpack-monthly-trove-data")
	if !errors.Is(err, ErrElementNotFound) {
		t.Fatalf("expected ErrElementNotFound, got %v", err)
	}
}

func TestLoadStopsOnEmptyPage(t *testing.T) {
	r := &mapRetriever{pages: map[string]string{
		testPageURL:                 readFixture(t, "trove.html"),
		fmt.Sprintf(testChunkURL, 0): "[" + productJSON("older", 100) + "," + productJSON("newest", 300) + "]",
		fmt.Sprintf(testChunkURL, 1): "[" + productJSON("middle", 200) + "]",
		fmt.Sprintf(testChunkURL, 2): "[]",
	}}

	feed, err := Load(context.Background(), r, testOptions(10), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	var names []string
	for _, p := range feed.StandardProducts {
		names = append(names, p.MachineName)
	}
	if diff := cmp.Diff([]string{"newest", "middle", "older"}, names); diff != "" {
		t.Fatalf("products out of order (-want +got):\n%s", diff)
	}
	if len(r.requests) != 4 {
		t.Fatalf("expected page + 3 chunks, got %v", r.requests)
	}
	if diff := cmp.Diff([]string{"windows", "mac", "linux"}, feed.DownloadPlatformOrder); diff != "" {
		t.Fatalf("platform order mismatch:\n%s", diff)
	}
	if len(feed.NewlyAdded) != 1 || feed.NewlyAdded[0].MachineName != "alpha_trove" {
		t.Fatalf("newly added mismatch: %+v", feed.NewlyAdded)
	}
	if feed.CountdownTimerOptions.NextAdditionTime == "" {
		t.Fatalf("countdown timer should be decoded")
	}
}

func TestLoadHonoursPageCap(t *testing.T) {
	r := &mapRetriever{pages: map[string]string{
		testPageURL:                 readFixture(t, "trove.html"),
		fmt.Sprintf(testChunkURL, 0): "[" + productJSON("a", 1) + "]",
		fmt.Sprintf(testChunkURL, 1): "[" + productJSON("b", 2) + "]",
	}}

	feed, err := Load(context.Background(), r, testOptions(2), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(feed.StandardProducts) != 2 {
		t.Fatalf("expected 2 products, got %d", len(feed.StandardProducts))
	}
}

func TestLoadProductsKeepsEncodedChunkURL(t *testing.T) {
	opts := testOptions(4)
	opts.ChunkURL = "https://trove.test/chunk?q=a%20b&index=%d"
	r := &mapRetriever{pages: map[string]string{
		"https://trove.test/chunk?q=a%20b&index=0": "[" + productJSON("a", 1) + "]",
		"https://trove.test/chunk?q=a%20b&index=1": "[]",
	}}

	products, err := LoadProducts(context.Background(), r, opts, nil)
	if err != nil {
		t.Fatalf("load products: %v", err)
	}
	if len(products) != 1 {
		t.Fatalf("expected 1 product, got %d", len(products))
	}
	want := []string{"https://trove.test/chunk?q=a%20b&index=0", "https://trove.test/chunk?q=a%20b&index=1"}
	if diff := cmp.Diff(want, r.requests); diff != "" {
		t.Fatalf("chunk requests mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadPropagatesDecodeErrors(t *testing.T) {
	r := &mapRetriever{pages: map[string]string{
		testPageURL:                 readFixture(t, "trove.html"),
		fmt.Sprintf(testChunkURL, 0): `{"not": "a list"}`,
	}}
	if _, err := Load(context.Background(), r, testOptions(5), nil); err == nil {
		t.Fatalf("malformed chunk should fail")
	}
}

func TestLoadPropagatesRetrieveErrors(t *testing.T) {
	r := &mapRetriever{pages: map[string]string{}}
	if _, err := Load(context.Background(), r, testOptions(5), nil); err == nil {
		t.Fatalf("missing page should fail")
	}
}

func TestProductNullableFields(t *testing.T) {
	raw := `{
		"background-image": null,
		"carousel-content": {"thumbnail": [], "screenshot": [], "youtube-link": null},
		"date-added": 5,
		"description-text": "",
		"downloads": {},
		"human-name": "Nulls",
		"image": null,
		"logo": null,
		"machine_name": "nulls",
		"marketing-blurb": null,
		"popularity": 0,
		"publishers": null
	}`
	var p Product
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.ImageURL() != "" || p.LogoURL() != "" || p.Trailer() != "" {
		t.Fatalf("nullable urls should be empty: %+v", p)
	}
	if p.MarketingBlurb.Kind != BlurbAbsent {
		t.Fatalf("blurb should be absent")
	}
	if p.Publishers.Present {
		t.Fatalf("publishers should be absent")
	}
}

func TestMarketingBlurbVariants(t *testing.T) {
	testCases := []struct {
		name string
		raw  string
		want MarketingBlurb
	}{
		{"null", `null`, MarketingBlurb{Kind: BlurbAbsent}},
		{"text", `"Play now"`, MarketingBlurb{Kind: BlurbText, Text: "Play now"}},
		{"structured", `{"text": "Play now", "style": "italic"}`, MarketingBlurb{Kind: BlurbStructured, Text: "Play now", Style: "italic"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var got MarketingBlurb
			if err := json.Unmarshal([]byte(tc.raw), &got); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %+v want %+v", got, tc.want)
			}
		})
	}

	var bad MarketingBlurb
	if err := json.Unmarshal([]byte(`42`), &bad); err == nil {
		t.Fatalf("numeric blurb should fail")
	}
}

func TestPublishersVariants(t *testing.T) {
	var list Publishers
	if err := json.Unmarshal([]byte(`[{"publisher-name": "A"}, {"publisher-name": "B", "publisher-uri": "https://b.test"}]`), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if diff := cmp.Diff([]string{"A", "B"}, list.Names()); diff != "" {
		t.Fatalf("names mismatch:\n%s", diff)
	}

	var single Publishers
	if err := json.Unmarshal([]byte(`{"publisher-name": "Solo"}`), &single); err != nil {
		t.Fatalf("decode single: %v", err)
	}
	if !single.Present || len(single.List) != 1 || single.List[0].Name != "Solo" {
		t.Fatalf("single publisher mismatch: %+v", single)
	}

	var bad Publishers
	if err := json.Unmarshal([]byte(`"nobody"`), &bad); err == nil {
		t.Fatalf("string publishers should fail")
	}

	encoded, err := json.Marshal(Publishers{})
	if err != nil || string(encoded) != "null" {
		t.Fatalf("absent publishers should encode as null: %s %v", encoded, err)
	}
}
