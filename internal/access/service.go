// Package access decides whether a chat identity may act.
//
// Administrators are an immutable allow-list fixed at construction and bypass
// the directory entirely. Everyone else is allowed only while approved. A
// failed lookup denies with internal_error; it never allows.
package access

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Directory

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"ledgerbot/internal/directory/models"
	"ledgerbot/internal/platform/metrics"
	"ledgerbot/pkg/requestcontext"
)

// Directory is the slice of the user directory the controller reads.
type Directory interface {
	Status(ctx context.Context, id int64) (models.Status, error)
}

const (
	ReasonNotRegistered = "not_registered"
	ReasonInternalError = "internal_error"
	reasonDeniedPrefix  = "denied:"
)

// Decision is the outcome of Check. Status is the directory status that led
// to a deny, empty for administrators and lookup failures.
type Decision struct {
	Allowed bool
	Reason  string
	Status  models.Status
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason string, status models.Status) Decision {
	return Decision{Reason: reason, Status: status}
}

// DeniedReason renders the deny reason for a requester in status.
func DeniedReason(status models.Status) string {
	return reasonDeniedPrefix + string(status)
}

type Controller struct {
	directory     Directory
	admins        []int64
	lookupTimeout time.Duration
	logger        *slog.Logger
	metrics       *metrics.Metrics
}

type Option func(*Controller)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// WithLookupTimeout bounds each directory lookup.
func WithLookupTimeout(d time.Duration) Option {
	return func(c *Controller) {
		c.lookupTimeout = d
	}
}

// New builds a controller. The admin list is copied so later changes by the
// caller have no effect.
func New(directory Directory, admins []int64, opts ...Option) (*Controller, error) {
	if directory == nil {
		return nil, errors.New("directory is required")
	}
	c := &Controller{
		directory:     directory,
		admins:        slices.Clone(admins),
		lookupTimeout: 5 * time.Second,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// IsAdmin reports whether id is on the administrator allow-list.
func (c *Controller) IsAdmin(id int64) bool {
	return slices.Contains(c.admins, id)
}

// Admins returns a copy of the allow-list, used as the recipient set for
// registration alerts.
func (c *Controller) Admins() []int64 {
	return slices.Clone(c.admins)
}

// Check decides whether id may use privileged operations right now.
func (c *Controller) Check(ctx context.Context, id int64) Decision {
	d := c.check(ctx, id)
	result := "allow"
	if !d.Allowed {
		result = d.Reason
	}
	c.metrics.ObserveAccess(result)
	return d
}

func (c *Controller) check(ctx context.Context, id int64) Decision {
	if c.IsAdmin(id) {
		return allow()
	}

	lookupCtx, cancel := context.WithTimeout(ctx, c.lookupTimeout)
	defer cancel()
	status, err := c.directory.Status(lookupCtx, id)
	if err != nil {
		c.logger.ErrorContext(ctx, "access lookup failed",
			"requester_id", id,
			"update_id", requestcontext.UpdateID(ctx),
			"error", err,
		)
		return deny(ReasonInternalError, "")
	}

	switch status {
	case models.StatusApproved:
		return allow()
	case models.StatusUnregistered:
		return deny(ReasonNotRegistered, status)
	default:
		return deny(DeniedReason(status), status)
	}
}
