package capture

import (
	"context"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSource hands out the same frame on every read.
type stubSource struct {
	mu     sync.Mutex
	frame  image.Image
	reads  int
	closed bool
}

func (s *stubSource) Next(_ context.Context) (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	return s.frame, nil
}

func (s *stubSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *stubSource) set(frame image.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frame = frame
}

func TestGateObserve(t *testing.T) {
	src := &stubSource{frame: flatFrame(64, 64, 128)}
	gate := NewGate(src, nil)

	// Nothing scored yet: the shutter stays closed.
	assert.False(t, gate.CanCapture())
	assert.False(t, gate.State().Ready)

	st := gate.Observe(flatFrame(64, 64, 128))
	assert.True(t, st.Blurry)
	assert.True(t, st.Ready)
	assert.False(t, gate.CanCapture())

	st = gate.Observe(checkerFrame(64, 64))
	assert.False(t, st.Blurry)
	assert.True(t, gate.CanCapture())

	// A blurry frame closes the gate again.
	gate.Observe(flatFrame(64, 64, 128))
	assert.False(t, gate.CanCapture())
}

func TestGateCapture(t *testing.T) {
	t.Run("blocked while blurry", func(t *testing.T) {
		src := &stubSource{frame: flatFrame(64, 64, 128)}
		gate := NewGate(src, nil)
		gate.Observe(flatFrame(64, 64, 128))

		_, err := gate.Capture(context.Background())
		assert.ErrorIs(t, err, ErrBlurry)
	})

	t.Run("captures a fresh frame when sharp", func(t *testing.T) {
		src := &stubSource{frame: checkerFrame(64, 64)}
		gate := NewGate(src, nil)
		gate.Observe(checkerFrame(64, 64))

		frame, err := gate.Capture(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 64, frame.Bounds().Dx())
		assert.Equal(t, 1, src.reads)
	})

	t.Run("oversized captures are scaled down", func(t *testing.T) {
		src := &stubSource{frame: checkerFrame(2400, 600)}
		gate := NewGate(src, nil)
		gate.Observe(checkerFrame(64, 64))

		frame, err := gate.Capture(context.Background())
		require.NoError(t, err)
		assert.Equal(t, MaxCaptureWidth, frame.Bounds().Dx())
	})
}

func TestGateSamplingLoop(t *testing.T) {
	src := &stubSource{frame: checkerFrame(64, 64)}
	gate := NewGate(src, nil, WithSampleInterval(5*time.Millisecond))

	gate.Start(context.Background())
	assert.Eventually(t, gate.CanCapture, time.Second, 5*time.Millisecond)

	src.set(flatFrame(64, 64, 128))
	assert.Eventually(t, func() bool { return !gate.CanCapture() }, time.Second, 5*time.Millisecond)

	require.NoError(t, gate.Stop())
	assert.True(t, src.closed)
}

func TestGateThresholdOption(t *testing.T) {
	src := &stubSource{}
	gate := NewGate(src, nil, WithThreshold(1e12))

	// Even maximal detail stays below an absurd threshold.
	st := gate.Observe(checkerFrame(64, 64))
	assert.True(t, st.Blurry)
}

func TestDirSource(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, imaging.Save(imaging.New(8, 8, image.White.C), dir+"/a.png"))
	require.NoError(t, imaging.Save(imaging.New(16, 8, image.White.C), dir+"/b.png"))

	src, err := NewDirSource(dir)
	require.NoError(t, err)

	first, err := src.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 8, first.Bounds().Dx())

	second, err := src.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 16, second.Bounds().Dx())

	// Wraps back to the first file.
	third, err := src.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 8, third.Bounds().Dx())

	t.Run("empty dir", func(t *testing.T) {
		_, err := NewDirSource(t.TempDir())
		assert.Error(t, err)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := src.Next(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
