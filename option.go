package paylink

import (
	"time"

	"github.com/vitwit/paylink/cache"
	"github.com/vitwit/paylink/logger"
	"github.com/vitwit/paylink/metrics"
	"github.com/vitwit/paylink/qr"
	"github.com/vitwit/paylink/registry"
	"github.com/vitwit/paylink/settlement"
)

type Option func(*Checkout)

func WithLogger(l logger.Logger) Option {
	return func(c *Checkout) {
		c.logger = l
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(c *Checkout) {
		c.metrics = r
	}
}

// WithTimeout bounds each Pay call.
func WithTimeout(t time.Duration) Option {
	return func(c *Checkout) {
		c.timeout = t
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Checkout) {
		c.now = now
	}
}

// WithObserver receives every settlement state transition.
func WithObserver(o settlement.Observer) Option {
	return func(c *Checkout) {
		c.observer = o
	}
}

func WithRenderer(r qr.Renderer) Option {
	return func(c *Checkout) {
		c.renderer = r
	}
}

func WithDecimalsCache(d cache.DecimalsCache) Option {
	return func(c *Checkout) {
		c.decimals = d
	}
}

// WithRegistry replaces the built-in chain and token tables.
func WithRegistry(r *registry.Registry) Option {
	return func(c *Checkout) {
		c.registry = r
	}
}
