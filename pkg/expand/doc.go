// Package expand builds the conversational context around a bookmarked
// post: the author's own reply continuation, direct replies from other
// users, and the recursively resolved quote chain.
//
// Both expanders degrade to partial results on ordinary failures and
// propagate rate-limit errors untouched, because a rate limit pauses the
// whole run rather than a single post.
package expand
