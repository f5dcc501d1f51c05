// Package scheduler fires daily generation jobs at each user's configured
// local time.
package scheduler
