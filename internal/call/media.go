package call

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
)

// SampleSource yields encoded audio frames from a capture device. The
// capture implementation itself is an external collaborator; anything
// that can produce opus frames can back a track.
type SampleSource interface {
	ReadSample() (media.Sample, error)
	Close() error
}

// Microphone acquires capture tracks from an opener. The opener is
// where a real device (and its permission prompt) lives, which is why
// Acquire may suspend for as long as the user stares at the dialog.
type Microphone struct {
	Open func(ctx context.Context) (SampleSource, error)
}

// Acquire opens the source and wraps it in a webrtc audio track with a
// running sample pump.
func (m *Microphone) Acquire(ctx context.Context) (LocalTrack, error) {
	src, err := m.Open(ctx)
	if err != nil {
		return nil, err
	}

	track, err := webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{
		MimeType:  webrtc.MimeTypeOpus,
		ClockRate: 48000,
		Channels:  2,
	}, "audio", "voicecall")
	if err != nil {
		src.Close()
		return nil, err
	}

	ct := &CaptureTrack{
		track: track,
		src:   src,
		done:  make(chan struct{}),
	}
	ct.enabled.Store(true)
	go ct.pump()
	return ct, nil
}

// CaptureTrack is the owned local media resource: a sample source, the
// webrtc track it feeds, and the enabled flag mute flips. While
// disabled the pump keeps consuming the source but writes nothing, so
// the track's timeline stays intact.
type CaptureTrack struct {
	track   *webrtc.TrackLocalStaticSample
	src     SampleSource
	enabled atomic.Bool
	done    chan struct{}
	stop    sync.Once
}

func (c *CaptureTrack) pump() {
	for {
		select {
		case <-c.done:
			return
		default:
		}
		sample, err := c.src.ReadSample()
		if err != nil {
			return
		}
		if c.enabled.Load() {
			c.track.WriteSample(sample)
		}
	}
}

// Local exposes the underlying webrtc track for attachment.
func (c *CaptureTrack) Local() webrtc.TrackLocal { return c.track }

func (c *CaptureTrack) SetEnabled(enabled bool) { c.enabled.Store(enabled) }

func (c *CaptureTrack) Enabled() bool { return c.enabled.Load() }

// Stop releases the source and halts the pump. Idempotent.
func (c *CaptureTrack) Stop() error {
	var err error
	c.stop.Do(func() {
		close(c.done)
		err = c.src.Close()
	})
	return err
}

// opusSilence is a DTX silence frame; a source of these keeps the track
// alive when no real capture device is wired in.
var opusSilence = []byte{0xf8, 0xff, 0xfe}

// SilenceSource produces 20ms opus silence frames. It stands in for a
// capture device on machines where no audio backend is wired up.
type SilenceSource struct {
	done chan struct{}
	stop sync.Once
}

// NewSilenceSource creates a running silence source.
func NewSilenceSource() *SilenceSource {
	return &SilenceSource{done: make(chan struct{})}
}

func (s *SilenceSource) ReadSample() (media.Sample, error) {
	select {
	case <-s.done:
		return media.Sample{}, context.Canceled
	case <-time.After(20 * time.Millisecond):
		return media.Sample{Data: opusSilence, Duration: 20 * time.Millisecond}, nil
	}
}

func (s *SilenceSource) Close() error {
	s.stop.Do(func() { close(s.done) })
	return nil
}
