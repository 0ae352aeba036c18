// Package export drives the resumable bookmark export pipeline.
//
// The orchestrator walks the bookmark timeline one page at a time,
// sequentially. For every post it decides fetch-vs-skip against the
// existence index, expands the reply thread and quote chain, writes the
// artifact, and advances the checkpoint past the post immediately.
//
// Rate limits are the central failure contract: any rate-limit-classified
// error, at any network call, persists the exact remaining work (the page
// suffix including the in-flight post, plus the next-page cursor) and ends
// the run cleanly. There is no retry and no backoff for rate limits; the
// next invocation resumes precisely where this one stopped. All other
// per-post failures are appended to the durable error log and the run
// continues.
//
// Pages and posts are processed on a single logical thread of control.
// The only concurrency is downloading one post's media attachments, which
// never touches checkpoint, cursor, or boundary state. Concurrent
// invocations against the same output location are unsupported.
package export
