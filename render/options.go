package render

import (
	"compress/zlib"

	"github.com/wudi/pdfrender/observability"
)

// Option configures a render.
type Option func(*config)

type config struct {
	compress bool
	level    int
	workers  int
	dpi      float64
	quality  int
	logger   observability.Logger
	tracer   observability.Tracer
}

func defaultConfig() config {
	return config{
		compress: true,
		level:    zlib.DefaultCompression,
		workers:  1,
		dpi:      300,
		quality:  85,
		logger:   observability.NopLogger{},
		tracer:   observability.NopTracer(),
	}
}

// WithCompression toggles FlateDecode for content streams, font programs
// and SVG forms.
func WithCompression(on bool) Option { return func(c *config) { c.compress = on } }

// WithCompressionLevel sets the compress/flate level.
func WithCompressionLevel(level int) Option { return func(c *config) { c.level = level } }

// WithWorkers emits up to n pages concurrently. Output does not depend on n.
func WithWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithImageDPI sets the resolution raster images are downscaled to.
func WithImageDPI(dpi float64) Option {
	return func(c *config) {
		if dpi > 0 {
			c.dpi = dpi
		}
	}
}

// WithJPEGQuality sets the quality raster images are re-encoded at.
func WithJPEGQuality(q int) Option {
	return func(c *config) {
		if q >= 1 && q <= 100 {
			c.quality = q
		}
	}
}

func WithLogger(l observability.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithTracer(t observability.Tracer) Option {
	return func(c *config) {
		if t != nil {
			c.tracer = t
		}
	}
}
