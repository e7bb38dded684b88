// Package auth manages the flctl credential lifecycle: the device
// authorization login flow, the persisted session record, and proactive
// token refresh with single-flight deduplication.
package auth
