package downloader

import (
	"context"
	"sync"
	"time"

	"bmexporter/pkg/logger"
	"bmexporter/pkg/models"
	"bmexporter/pkg/retry"
)

// MediaFetcher downloads a media file by URL.
type MediaFetcher interface {
	DownloadMedia(ctx context.Context, url string) ([]byte, error)
}

// MediaStore persists a downloaded media file.
type MediaStore interface {
	SaveMedia(postID string, position int, mediaURL string, data []byte) (string, error)
}

// Result is the outcome of downloading one attachment.
type Result struct {
	Media    models.Media
	Filename string
	Err      error
	Duration time.Duration
}

// Pool downloads the media attachments of a single post concurrently.
// This is the only parallelism in the pipeline: it is scoped to one
// already-committed post and never touches checkpoint, cursor, or
// boundary state.
type Pool struct {
	workers  int
	fetcher  MediaFetcher
	store    MediaStore
	attempts int
	logger   logger.Logger
}

// NewPool creates a media download pool.
func NewPool(workers int, fetcher MediaFetcher, store MediaStore, attempts int, log logger.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if attempts <= 0 {
		attempts = 1
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Pool{
		workers:  workers,
		fetcher:  fetcher,
		store:    store,
		attempts: attempts,
		logger:   log,
	}
}

// DownloadAll fetches every attachment of the post and returns the stored
// filenames in attachment order. Failed attachments are reported in the
// results but do not fail the post.
func (p *Pool) DownloadAll(ctx context.Context, post *models.Post) []Result {
	if len(post.Media) == 0 {
		return nil
	}

	jobs := make(chan int)
	results := make([]Result, len(post.Media))

	var wg sync.WaitGroup
	for w := 0; w < p.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = p.download(ctx, post, i)
			}
		}()
	}

	for i := range post.Media {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}

func (p *Pool) download(ctx context.Context, post *models.Post, position int) Result {
	media := post.Media[position]
	start := time.Now()

	var data []byte
	err := retry.Do(func() error {
		var fetchErr error
		data, fetchErr = p.fetcher.DownloadMedia(ctx, media.URL)
		return fetchErr
	}, &retry.Config{
		MaxAttempts: p.attempts,
		Backoff:     retry.DefaultExponentialBackoff(),
		Context:     ctx,
		Logger:      p.logger,
	})
	if err != nil {
		p.logger.WarnWithFields("media download failed", map[string]interface{}{
			"post_id": post.ID,
			"url":     media.URL,
			"error":   err.Error(),
		})
		return Result{Media: media, Err: err, Duration: time.Since(start)}
	}

	filename, err := p.store.SaveMedia(post.ID, position, media.URL, data)
	if err != nil {
		return Result{Media: media, Err: err, Duration: time.Since(start)}
	}

	p.logger.DebugWithFields("media downloaded", map[string]interface{}{
		"post_id":  post.ID,
		"filename": filename,
		"size":     len(data),
		"duration": time.Since(start),
	})

	return Result{Media: media, Filename: filename, Duration: time.Since(start)}
}
