package call

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
)

// State is the call session's lifecycle position. Transitions only ever
// run Idle -> Connecting -> Connected -> Idle.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "idle"
	}
}

// LocalTrack is the exclusively owned local capture resource. Enabled
// gates whether captured audio reaches the peer; Stop releases the
// device and must be idempotent.
type LocalTrack interface {
	SetEnabled(enabled bool)
	Enabled() bool
	Stop() error
}

// MediaDevice acquires capture tracks. Acquire may suspend indefinitely
// (a permission prompt); the ctx lets the embedder bound it.
type MediaDevice interface {
	Acquire(ctx context.Context) (LocalTrack, error)
}

// PeerConn is the exclusively owned connection resource. Descriptions
// and candidates are opaque JSON blobs; Close must be idempotent.
type PeerConn interface {
	CreateOffer(ctx context.Context) (json.RawMessage, error)
	AcceptOffer(ctx context.Context, offer json.RawMessage) (json.RawMessage, error)
	AcceptAnswer(answer json.RawMessage) error
	AddRemoteCandidate(candidate json.RawMessage) error
	Close() error
}

// ConnState is the connection resource's own notion of progress, as
// reported by its state-change notifications.
type ConnState int

const (
	ConnStateConnecting ConnState = iota
	ConnStateConnected
	ConnStateDisconnected
	ConnStateFailed
	ConnStateClosed
)

// PeerHandlers receives asynchronous events from a connection resource.
type PeerHandlers struct {
	// OnCandidate fires for every locally gathered ICE candidate.
	OnCandidate func(candidate json.RawMessage)
	// OnState fires on every connection state change.
	OnState func(state ConnState)
}

// PeerConnector creates connection resources with the local track
// already attached.
type PeerConnector interface {
	Connect(ctx context.Context, track LocalTrack, handlers PeerHandlers) (PeerConn, error)
}

// SignalSender transmits negotiation messages produced by the session.
type SignalSender interface {
	SendOffer(offer json.RawMessage)
	SendAnswer(answer json.RawMessage)
	SendCandidate(candidate json.RawMessage)
}

// StatusFunc receives user-visible status lines.
type StatusFunc func(status string)

// Session is the peer call state machine. It exclusively owns one
// capture track and one peer connection per call attempt; both come
// into existence on entering Connecting and are released together on
// every path back to Idle.
//
// The machine is driven from two sources, local intent and relayed
// messages; a mutex serializes its mutations. Acquisition steps suspend
// without holding the lock, carrying a generation stamp: if a teardown
// bumps the generation mid-flight, the late completion releases
// whatever it produced and becomes a no-op.
type Session struct {
	media   MediaDevice
	peers   PeerConnector
	signals SignalSender
	status  StatusFunc
	log     zerolog.Logger

	mu    sync.Mutex
	state State
	gen   uint64
	track LocalTrack
	conn  PeerConn
	muted bool

	counter Counter
}

// NewSession builds an idle session. status may be nil.
func NewSession(media MediaDevice, peers PeerConnector, signals SignalSender, status StatusFunc, log zerolog.Logger) *Session {
	if status == nil {
		status = func(string) {}
	}
	return &Session{
		media:   media,
		peers:   peers,
		signals: signals,
		status:  status,
		log:     log,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Muted reports whether the local track is muted.
func (s *Session) Muted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.muted
}

// DurationSeconds returns the connected time of the current call.
func (s *Session) DurationSeconds() int {
	return s.counter.Seconds()
}

// StartCall places an outbound call: acquire the capture track, build
// the connection, transmit an offer, enter Connecting. While the
// session is not Idle this is a guarded no-op, so a second press cannot
// acquire a second set of resources.
func (s *Session) StartCall(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		s.log.Debug().Stringer("state", s.state).Msg("start call ignored, not idle")
		return nil
	}
	s.state = StateConnecting
	gen := s.gen
	s.mu.Unlock()

	s.status("Starting call...")

	conn, stale, err := s.acquireResources(ctx, gen)
	if stale {
		return nil
	}
	if err != nil {
		return s.failAttempt("start call", err, "Failed to start call (mic permission or connection issue).")
	}

	offer, err := conn.CreateOffer(ctx)
	if s.staleDone(gen) {
		return nil
	}
	if err != nil {
		return s.failAttempt("create offer", newError("create offer", ErrNegotiation), "Failed to start call (mic permission or connection issue).")
	}

	s.signals.SendOffer(offer)
	return nil
}

// ReceiveOffer answers an inbound call. Offers arriving while the
// session is not Idle are ignored.
func (s *Session) ReceiveOffer(ctx context.Context, offer json.RawMessage) error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		s.log.Debug().Stringer("state", s.state).Msg("offer ignored, not idle")
		return nil
	}
	s.state = StateConnecting
	gen := s.gen
	s.mu.Unlock()

	s.status("Incoming call... connecting")

	conn, stale, err := s.acquireResources(ctx, gen)
	if stale {
		return nil
	}
	if err != nil {
		return s.failAttempt("answer call", err, "Failed to answer call.")
	}

	answer, err := conn.AcceptOffer(ctx, offer)
	if s.staleDone(gen) {
		return nil
	}
	if err != nil {
		return s.failAttempt("accept offer", newError("accept offer", ErrNegotiation), "Failed to answer call.")
	}

	s.signals.SendAnswer(answer)
	return nil
}

// ReceiveAnswer applies the remote answer to the existing connection
// resource. Without one it is dropped. Connected is not entered here;
// that happens only through the connection's own state notification.
func (s *Session) ReceiveAnswer(answer json.RawMessage) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		s.log.Debug().Msg("answer dropped, no connection")
		return nil
	}
	if err := conn.AcceptAnswer(answer); err != nil {
		return s.failAttempt("accept answer", newError("accept answer", ErrNegotiation), "Failed to set remote answer.")
	}
	return nil
}

// ReceiveCandidate applies a remote ICE candidate to the existing
// connection resource. Candidates arriving before one exists are
// dropped; there is no buffering.
func (s *Session) ReceiveCandidate(candidate json.RawMessage) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		s.log.Debug().Msg("early candidate dropped")
		return
	}
	if err := conn.AddRemoteCandidate(candidate); err != nil {
		s.log.Warn().Err(err).Msg("failed to add candidate")
	}
}

// ToggleMute flips the capture track's enabled flag and reports the new
// muted value. Only meaningful while Connected.
func (s *Session) ToggleMute() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateConnected || s.track == nil {
		return s.muted
	}
	s.muted = !s.muted
	s.track.SetEnabled(!s.muted)
	return s.muted
}

// EndCall is the local hang-up intent.
func (s *Session) EndCall() {
	s.reset()
	s.status("Call ended")
}

// ReceiveCallEnded handles a remote teardown notification.
func (s *Session) ReceiveCallEnded(reason string) {
	s.reset()
	s.status("Call Ended: " + reason)
}

// HandleTransportLoss tears the session down after signaling loss.
func (s *Session) HandleTransportLoss() {
	s.reset()
	s.status("Disconnected from server")
}

// handleConnState reacts to connection resource state changes. Only the
// entry into "connected" carries a transition; failure states are
// handled through the call_ended / teardown paths.
func (s *Session) handleConnState(gen uint64, state ConnState) {
	if state != ConnStateConnected {
		return
	}
	s.mu.Lock()
	if s.gen != gen || s.state != StateConnecting {
		s.mu.Unlock()
		return
	}
	s.state = StateConnected
	s.counter.Start()
	s.mu.Unlock()
	s.status("Call connected")
}

// handleLocalCandidate trickles a locally gathered candidate out, as
// long as the attempt that gathered it is still live.
func (s *Session) handleLocalCandidate(gen uint64, candidate json.RawMessage) {
	s.mu.Lock()
	live := s.gen == gen && s.conn != nil
	s.mu.Unlock()
	if live {
		s.signals.SendCandidate(candidate)
	}
}

// acquireResources runs the suspending acquisition sequence shared by
// StartCall and ReceiveOffer: capture track first, then the connection
// with the track attached. Each completion re-checks the generation;
// stale=true means the session was torn down mid-flight and everything
// produced so far has been released.
func (s *Session) acquireResources(ctx context.Context, gen uint64) (conn PeerConn, stale bool, err error) {
	track, err := s.media.Acquire(ctx)
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		if track != nil {
			track.Stop()
		}
		return nil, true, nil
	}
	if err != nil {
		s.mu.Unlock()
		return nil, false, newError("acquire microphone", ErrMediaAcquisition)
	}
	s.track = track
	s.mu.Unlock()

	handlers := PeerHandlers{
		OnCandidate: func(c json.RawMessage) { s.handleLocalCandidate(gen, c) },
		OnState:     func(st ConnState) { s.handleConnState(gen, st) },
	}
	conn, err = s.peers.Connect(ctx, track, handlers)
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return nil, true, nil
	}
	if err != nil {
		s.mu.Unlock()
		return nil, false, newError("create connection", ErrNegotiation)
	}
	s.conn = conn
	s.mu.Unlock()
	return conn, false, nil
}

// staleDone reports whether the attempt stamped gen has been superseded.
func (s *Session) staleDone(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen != gen
}

// failAttempt aborts the current attempt: resources released, state
// back to Idle, a user-visible status, and the error returned.
func (s *Session) failAttempt(op string, err error, statusMsg string) error {
	s.reset()
	s.status(statusMsg)
	s.log.Warn().Err(err).Str("op", op).Msg("call attempt failed")
	return err
}

// reset releases both owned resources, stops the duration counter,
// clears mute, bumps the generation and returns to Idle. Safe to invoke
// redundantly: every release is nil-checked and idempotent.
func (s *Session) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.counter.Stop()
	s.muted = false
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	if s.track != nil {
		s.track.Stop()
		s.track = nil
	}
	s.state = StateIdle
}
