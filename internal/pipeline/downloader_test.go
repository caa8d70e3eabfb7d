package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/gazetteer/internal/cache"
	"github.com/ppiankov/gazetteer/internal/model"
)

// gazetteServer serves one year index and the bulletins it links
func gazetteServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch {
		case r.URL.Path == "/index" && r.URL.Query().Get("year") == "2006":
			_, _ = fmt.Fprint(w, indexPage)
		case strings.HasPrefix(r.URL.Path, "/documents/2006/"):
			_, _ = fmt.Fprintf(w, "bulletin %s", strings.TrimPrefix(r.URL.Path, "/documents/2006/"))
		default:
			http.NotFound(w, r)
		}
	}))
}

func testSource(base string) model.SourceConfig {
	return model.SourceConfig{
		YearIndexURL: base + "/index?year={year}",
		DocumentURL:  base + "/documents/{year}/{docid}",
	}
}

func TestDownloader_URLs(t *testing.T) {
	d := NewDownloader(nil, nil, model.DefaultConfig().Source)
	assert.Equal(t,
		"http://www.qp.alberta.ca/alberta_gazette.cfm?page=gazette_2006_registrar.cfm",
		d.YearIndexURL(2006))
	assert.Equal(t,
		"http://www.qp.alberta.ca/documents/gazette/2006/text/18_Sep30_Registrar.cfm",
		d.DocumentURL(model.DocumentID{Year: 2006, Stem: "18_Sep30"}))
}

func TestDownloader_DiscoverAndDownload(t *testing.T) {
	var hits atomic.Int32
	server := gazetteServer(t, &hits)
	defer server.Close()

	disk := cache.NewDiskCache(t.TempDir(), 0)
	d := NewDownloader(newTestFetcher(), disk, testSource(server.URL))
	ctx := context.Background()

	ids, err := d.Discover(ctx, 2006)
	require.NoError(t, err)
	require.Equal(t, []model.DocumentID{
		{Year: 2006, Stem: "17_Sep15"},
		{Year: 2006, Stem: "18_Sep30"},
	}, ids)
	assert.True(t, disk.Has("gazette/2006.html"))

	dl, err := d.DownloadDocument(ctx, ids[1])
	require.NoError(t, err)
	assert.False(t, dl.Cached)
	assert.Equal(t, "bulletin 18_Sep30", string(dl.Data))

	stored, ok := disk.Get("gazette/2006/18_Sep30.txt")
	require.True(t, ok)
	assert.Equal(t, "bulletin 18_Sep30", string(stored))
}

func TestDownloader_Idempotent(t *testing.T) {
	var hits atomic.Int32
	server := gazetteServer(t, &hits)
	defer server.Close()

	disk := cache.NewDiskCache(t.TempDir(), 0)
	d := NewDownloader(newTestFetcher(), disk, testSource(server.URL))
	id := model.DocumentID{Year: 2006, Stem: "17_Sep15"}

	_, err := d.DownloadDocument(context.Background(), id)
	require.NoError(t, err)
	require.EqualValues(t, 1, hits.Load())

	again, err := d.DownloadDocument(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, again.Cached)
	assert.Equal(t, "bulletin 17_Sep15", string(again.Data))
	assert.EqualValues(t, 1, hits.Load(), "cached document must not be fetched again")
}

func TestDownloader_NotFoundIsNotCached(t *testing.T) {
	var hits atomic.Int32
	server := gazetteServer(t, &hits)
	defer server.Close()

	disk := cache.NewDiskCache(t.TempDir(), 0)
	d := NewDownloader(newTestFetcher(), disk, testSource(server.URL))

	_, err := d.Discover(context.Background(), 1999)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.False(t, disk.Has(model.YearIndexKey(1999)))
}

func TestDownloader_IsCached(t *testing.T) {
	disk := cache.NewDiskCache(t.TempDir(), 0)
	d := NewDownloader(nil, disk, model.DefaultConfig().Source)
	id := model.DocumentID{Year: 2006, Stem: "18_Sep30"}

	assert.False(t, d.IsCached(id))
	require.NoError(t, disk.Set(id.CacheKey(), []byte("text"), 0))
	assert.True(t, d.IsCached(id))

	require.NoError(t, d.Evict(id))
	assert.False(t, d.IsCached(id))
	assert.NoError(t, d.Evict(id), "evicting twice is not an error")
}
