package export

import (
	"context"
	"time"

	"bmexporter/internal/downloader"
	"bmexporter/pkg/checkpoint"
	"bmexporter/pkg/config"
	"bmexporter/pkg/errors"
	"bmexporter/pkg/expand"
	"bmexporter/pkg/logger"
	"bmexporter/pkg/metacache"
	"bmexporter/pkg/models"
	"bmexporter/pkg/ratelimit"
	"bmexporter/pkg/storage"
)

// Backfill names a rebuild sub-operation. Each is gated by its own
// idempotence predicate over the stored artifact, so already-satisfied
// posts are skipped even in rebuild mode.
type Backfill string

const (
	BackfillReplies  Backfill = "replies"
	BackfillMetadata Backfill = "metadata"
	BackfillMedia    Backfill = "media"
)

// Options control a single Run invocation.
type Options struct {
	// Rebuild ignores the boundary id and rescans the whole timeline,
	// relying solely on existence checks.
	Rebuild bool

	// Backfills are the rebuild sub-operations to apply to posts that
	// already exist on disk. Ignored outside rebuild mode.
	Backfills []Backfill

	// MaxPages caps pages fetched this invocation. 0 means no cap.
	// Hitting the cap preserves state exactly like a rate limit does,
	// but reports RateLimited=false.
	MaxPages int
}

// Result is the structured outcome of a run.
type Result struct {
	Exported            int
	Skipped             int
	Errors              int
	Pages               int
	RateLimited         bool
	HitPreviousBoundary bool
}

// Exporter drives the export pipeline: the page loop, fetch-vs-skip
// decisions, rate-limit classification, and checkpoint persistence.
type Exporter struct {
	client      Client
	checkpoints *checkpoint.Manager
	store       *storage.Manager
	cache       *metacache.Cache
	threads     *expand.ThreadExpander
	quotes      *expand.QuoteExpander
	pool        *downloader.Pool
	limiter     ratelimit.Limiter
	metaFetcher MetadataFetcher
	cfg         *config.Config
	logger      logger.Logger

	// sleep is the politeness delay between pages, overridable in tests.
	sleep func(time.Duration)
}

// New creates an Exporter wired from the configuration.
func New(cfg *config.Config, client Client) (*Exporter, error) {
	log := logger.GetLogger()

	checkpoints, err := checkpoint.NewManager(cfg.Export.StateDir)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewManager(cfg.Output.Directory)
	if err != nil {
		return nil, err
	}

	cache := metacache.New(cfg.Output.Directory)
	if err := cache.Load(); err != nil {
		return nil, err
	}

	var limiter ratelimit.Limiter = ratelimit.NewTokenBucket(cfg.RateLimit.RequestsPerMinute, time.Minute)

	return &Exporter{
		client:      client,
		checkpoints: checkpoints,
		store:       store,
		cache:       cache,
		threads:     expand.NewThreadExpander(client, log),
		quotes:      expand.NewQuoteExpander(client, log),
		pool:        downloader.NewPool(cfg.Download.ConcurrentLimit, client, store, cfg.Download.RetryAttempts, log),
		limiter:     limiter,
		cfg:         cfg,
		logger:      log,
		sleep:       time.Sleep,
	}, nil
}

// SetMetadataFetcher installs the link-metadata resolver. Without one,
// enrichment is skipped entirely.
func (e *Exporter) SetMetadataFetcher(f MetadataFetcher) {
	e.metaFetcher = f
}

// CheckpointPath returns the path of the checkpoint document, for the
// resume instruction printed after a rate-limited run.
func (e *Exporter) CheckpointPath() string {
	return e.checkpoints.Path()
}

// DiscardCheckpoint removes any saved pagination state so the next run
// starts from the head of the timeline. The boundary id is lost with it.
func (e *Exporter) DiscardCheckpoint() error {
	return e.checkpoints.Delete()
}

// Run executes one export invocation. A rate-limited run returns a nil
// error with Result.RateLimited set: the pause is an expected outcome,
// not a failure. Only unusable state or a failed checkpoint save aborts
// the run with an error.
func (e *Exporter) Run(ctx context.Context, opts Options) (*Result, error) {
	cp, err := e.checkpoints.Load()
	if err != nil {
		return nil, err
	}
	if cp == nil {
		cp = checkpoint.NewExportCheckpoint()
	}

	resuming := cp.HasPagination()
	if resuming {
		e.logger.InfoWithFields("Resuming interrupted run", map[string]interface{}{
			"next_cursor":    cp.NextCursor,
			"remainder_size": len(cp.PageRemainder),
			"page_number":    cp.PageNumber,
		})
	} else {
		// Fresh run: the boundary for this run is not yet known.
		cp.ThisRunBoundaryID = ""
		cp.Completed = false
		cp.CompletedAt = nil
	}

	result := &Result{}
	leadingSkips := 0
	sawExport := false

	for {
		var posts []models.Post
		var nextCursor string

		if len(cp.PageRemainder) > 0 {
			// Resume the partial page instead of re-fetching it.
			posts = cp.PageRemainder
			nextCursor = cp.NextCursor
		} else {
			if opts.MaxPages > 0 && result.Pages >= opts.MaxPages {
				if err := e.checkpoints.Save(cp); err != nil {
					return result, err
				}
				e.logger.InfoWithFields("Page cap reached, stopping with state preserved", map[string]interface{}{
					"pages": result.Pages,
				})
				return result, nil
			}

			e.limiter.Wait()
			page, err := e.client.FetchBookmarkPage(ctx, cp.NextCursor)
			if err != nil {
				if errors.IsRateLimited(err) {
					return e.rateLimitStop(cp, result, "bookmark_page")
				}
				return result, err
			}
			result.Pages++
			posts = page.Posts
			nextCursor = page.NextCursor
		}

		boundaryHit := false

		for i := 0; i < len(posts); i++ {
			post := posts[i]

			if !opts.Rebuild && cp.PreviousRunBoundaryID != "" && post.ID == cp.PreviousRunBoundaryID {
				boundaryHit = true
				result.HitPreviousBoundary = true
				e.logger.InfoWithFields("Previous run boundary reached", map[string]interface{}{
					"post_id": post.ID,
				})
				break
			}

			if path, ok := e.store.Locate(post.ID, post.CreatedAt); ok && e.satisfied(&post, path, opts) {
				result.Skipped++
				cp.PageRemainder = posts[i+1:]
				cp.NextCursor = nextCursor

				if !sawExport && !opts.Rebuild {
					leadingSkips++
					if t := e.cfg.Export.BoundarySkipThreshold; t > 0 && leadingSkips >= t {
						boundaryHit = true
						e.logger.InfoWithFields("Leading already-exported posts reached threshold, stopping", map[string]interface{}{
							"threshold": t,
						})
						break
					}
				}
				continue
			}

			if err := e.processPost(ctx, &post); err != nil {
				if errors.IsRateLimited(err) {
					cp.PageRemainder = posts[i:]
					cp.NextCursor = nextCursor
					return e.rateLimitStop(cp, result, "post_processing")
				}

				result.Errors++
				e.logger.WithError(err).WithField("post_id", post.ID).Error("Post processing failed")
				if logErr := e.store.AppendError(models.ExportError{
					PostID:    post.ID,
					Message:   err.Error(),
					Timestamp: time.Now(),
					Context:   "post processing",
				}); logErr != nil {
					return result, logErr
				}
				continue
			}

			sawExport = true
			result.Exported++
			if !opts.Rebuild && cp.ThisRunBoundaryID == "" {
				cp.ThisRunBoundaryID = post.ID
			}

			// Persist immediately so a later rate limit cannot cause
			// this post to be re-processed.
			cp.PageRemainder = posts[i+1:]
			cp.NextCursor = nextCursor
			if err := e.checkpoints.Save(cp); err != nil {
				return result, err
			}
		}

		if boundaryHit {
			// The scan reached territory covered by a prior run;
			// everything new has been exported, so the run completes.
			cp.MarkCompleted(time.Now())
			if err := e.checkpoints.Save(cp); err != nil {
				return result, err
			}
			return result, nil
		}

		cp.PageRemainder = nil
		cp.NextCursor = nextCursor
		cp.PageNumber++

		if nextCursor == "" {
			cp.MarkCompleted(time.Now())
			if err := e.checkpoints.Save(cp); err != nil {
				return result, err
			}
			e.logger.InfoWithFields("Export completed", map[string]interface{}{
				"exported": result.Exported,
				"skipped":  result.Skipped,
				"errors":   result.Errors,
			})
			return result, nil
		}

		if err := e.checkpoints.Save(cp); err != nil {
			return result, err
		}

		logger.LogExportProgress(cp.PageNumber, result.Exported, result.Skipped, result.Errors)
		e.sleep(e.cfg.Export.PolitenessDelay)
	}
}

// rateLimitStop persists the checkpoint and ends the run without error.
// No retry, no backoff: the next invocation resumes exactly here.
func (e *Exporter) rateLimitStop(cp *checkpoint.ExportCheckpoint, result *Result, endpoint string) (*Result, error) {
	logger.LogRateLimit(endpoint, len(cp.PageRemainder))
	if err := e.checkpoints.Save(cp); err != nil {
		return result, err
	}
	result.RateLimited = true
	return result, nil
}

// satisfied reports whether the stored artifact already satisfies the
// requested work. Outside rebuild mode existence alone satisfies; in
// rebuild mode every requested backfill predicate must hold.
func (e *Exporter) satisfied(post *models.Post, path string, opts Options) bool {
	if !opts.Rebuild || len(opts.Backfills) == 0 {
		return true
	}
	for _, b := range opts.Backfills {
		switch b {
		case BackfillReplies:
			if !e.store.HasReplies(path) {
				return false
			}
		case BackfillMetadata:
			if !e.store.HasLinkMetadata(path) {
				return false
			}
		case BackfillMedia:
			if !e.store.MediaComplete(post) {
				return false
			}
		}
	}
	return true
}
