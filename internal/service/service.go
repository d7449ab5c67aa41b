package service

import (
	"context"
	"time"
)

// Clock returns the current time.
type Clock func() time.Time

// UTC is the production clock. Stored timestamps are always UTC.
func UTC() time.Time {
	return time.Now().UTC()
}

type ctxKey int

const clientIPKey ctxKey = iota

// WithClientIP attaches the caller's address for audit records.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

// ClientIP returns the address stored by WithClientIP, or "".
func ClientIP(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey).(string)
	return ip
}

// Assignment caps.
const (
	MaxProjectsPerUser        = 3
	MaxTasksPerUserPerProject = 3
)

// SkipReason explains why a requested assignment was not created.
type SkipReason string

const (
	SkipNotFound     SkipReason = "not_found"
	SkipLimitReached SkipReason = "limit_reached"
	SkipDuplicate    SkipReason = "duplicate"
)

// SkippedAssignment is an assignee id that was left out of a create.
type SkippedAssignment struct {
	UserID uint       `json:"user_id"`
	Reason SkipReason `json:"reason"`
}
