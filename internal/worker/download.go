package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/gazetteer/internal/model"
	"github.com/ppiankov/gazetteer/internal/pipeline"
)

// DocumentDownloader fetches one bulletin into the cache
type DocumentDownloader interface {
	DocumentURL(id model.DocumentID) string
	IsCached(id model.DocumentID) bool
	DownloadDocument(ctx context.Context, id model.DocumentID) (*pipeline.Download, error)
}

// DownloadJob downloads one bulletin, waiting on the host limiter first
// unless the bulletin is already cached
type DownloadJob struct {
	Index      int
	ID         model.DocumentID
	Downloader DocumentDownloader
	Limiter    *Limiter
}

// Execute runs the download
func (j *DownloadJob) Execute(ctx context.Context) Result {
	result := &DownloadResult{Index: j.Index, ID: j.ID}

	if j.Limiter != nil && !j.Downloader.IsCached(j.ID) {
		if err := j.Limiter.Wait(ctx, j.Downloader.DocumentURL(j.ID)); err != nil {
			result.Error = fmt.Errorf("rate limit: %w", err)
			return result
		}
	}

	result.Download, result.Error = j.Downloader.DownloadDocument(ctx, j.ID)
	return result
}

// DownloadResult is the outcome of one DownloadJob
type DownloadResult struct {
	Index    int
	ID       model.DocumentID
	Download *pipeline.Download
	Error    error
}

// GetError returns the download error
func (r *DownloadResult) GetError() error {
	return r.Error
}

// BatchProcessor downloads many bulletins concurrently
type BatchProcessor struct {
	downloader  DocumentDownloader
	limiter     *Limiter
	concurrency int
}

// NewBatchProcessor creates a batch processor. limiter may be nil.
func NewBatchProcessor(downloader DocumentDownloader, limiter *Limiter, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		downloader:  downloader,
		limiter:     limiter,
		concurrency: concurrency,
	}
}

// ProcessDocuments downloads ids and returns one result per id in input
// order. Cancelled downloads are reported with the context error.
func (b *BatchProcessor) ProcessDocuments(ctx context.Context, ids []model.DocumentID) []*DownloadResult {
	if len(ids) == 0 {
		return []*DownloadResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	go func() {
		for i, id := range ids {
			if !pool.Submit(&DownloadJob{Index: i, ID: id, Downloader: b.downloader, Limiter: b.limiter}) {
				return
			}
		}
		pool.Close()
	}()

	results := make([]*DownloadResult, len(ids))
collect:
	for received := 0; received < len(ids); received++ {
		select {
		case result, ok := <-pool.Results():
			if !ok {
				break collect
			}
			r := result.(*DownloadResult)
			results[r.Index] = r
		case <-ctx.Done():
			break collect
		}
	}
	pool.Shutdown()

	for i, r := range results {
		if r == nil {
			results[i] = &DownloadResult{Index: i, ID: ids[i], Error: ctx.Err()}
		}
	}

	return results
}

// ReadDocumentIDsFromFile reads "<year>/<stem>" ids, one per line. Blank lines
// and lines starting with # are ignored; duplicates are dropped.
func ReadDocumentIDsFromFile(filePath string) ([]model.DocumentID, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var ids []model.DocumentID
	seen := make(map[model.DocumentID]bool)

	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		id, err := model.ParseDocumentID(line)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", filePath, lineNo, err)
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return ids, nil
}
