// Package notifications sends ntfy push notifications for job completion,
// job failure, and credential revocation. With no topic configured the
// service degrades to a noop so callers never branch on configuration.
package notifications
