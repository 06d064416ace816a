package capture

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/disintegration/imaging"
)

// ErrBlurry is returned when a capture is attempted while the gate is closed.
var ErrBlurry = errors.New("frame is too blurry to capture")

// DefaultSampleInterval is how often the gate scores a fresh frame.
const DefaultSampleInterval = 500 * time.Millisecond

// FrameSource produces frames from a camera or a stand-in.
type FrameSource interface {
	// Next blocks until the next frame is available.
	Next(ctx context.Context) (image.Image, error)
	// Close releases the underlying device.
	Close() error
}

// State is one focus measurement.
type State struct {
	Score  float64
	Blurry bool
	// Ready is false until the first frame has been scored.
	Ready bool
}

// Gate samples frames on a fixed cadence, scores each for focus, and only
// allows a capture while the latest frame scored sharp. Scoring runs on a
// downscaled copy; Capture pulls a fresh full-resolution frame.
type Gate struct {
	source    FrameSource
	threshold float64
	interval  time.Duration
	log       *slog.Logger

	mu    sync.Mutex
	state State

	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Gate.
type Option func(*Gate)

// WithThreshold overrides DefaultBlurThreshold.
func WithThreshold(t float64) Option {
	return func(g *Gate) { g.threshold = t }
}

// WithSampleInterval overrides DefaultSampleInterval.
func WithSampleInterval(d time.Duration) Option {
	return func(g *Gate) { g.interval = d }
}

// NewGate wraps a frame source in a focus gate. Call Start to begin sampling.
func NewGate(source FrameSource, log *slog.Logger, opts ...Option) *Gate {
	if log == nil {
		log = slog.Default()
	}
	g := &Gate{
		source:    source,
		threshold: DefaultBlurThreshold,
		interval:  DefaultSampleInterval,
		log:       log,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Start launches the sampling loop. It returns immediately.
func (g *Gate) Start(ctx context.Context) {
	ctx, g.cancel = context.WithCancel(ctx)
	g.done = make(chan struct{})

	go func() {
		defer close(g.done)
		ticker := time.NewTicker(g.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				frame, err := g.source.Next(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					g.log.Warn("frame read failed", "error", err)
					continue
				}
				g.Observe(frame)
			}
		}
	}()
}

// Observe scores one frame and records the result. The sampling loop calls
// this on every tick; tests can call it directly.
func (g *Gate) Observe(frame image.Image) State {
	score := BlurScore(frame)
	st := State{
		Score:  score,
		Blurry: score < g.threshold,
		Ready:  true,
	}
	g.mu.Lock()
	g.state = st
	g.mu.Unlock()
	return st
}

// State returns the latest measurement.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// CanCapture reports whether the shutter is currently enabled.
func (g *Gate) CanCapture() bool {
	st := g.State()
	return st.Ready && !st.Blurry
}

// Capture pulls a fresh full-resolution frame, scaling it down if it exceeds
// MaxCaptureWidth. It fails with ErrBlurry while the gate is closed so a
// blurry document can never be captured by accident.
func (g *Gate) Capture(ctx context.Context) (image.Image, error) {
	if !g.CanCapture() {
		return nil, ErrBlurry
	}
	frame, err := g.source.Next(ctx)
	if err != nil {
		return nil, err
	}
	if frame.Bounds().Dx() > MaxCaptureWidth {
		frame = imaging.Resize(frame, MaxCaptureWidth, 0, imaging.Lanczos)
	}
	return frame, nil
}

// Stop ends the sampling loop and releases the frame source.
func (g *Gate) Stop() error {
	if g.cancel != nil {
		g.cancel()
		<-g.done
	}
	return g.source.Close()
}
