package call

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	pion "github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"

	"github.com/thesujaljaiswal/Voice-Chat-Application/internal/config"
)

// PionConnector builds connection resources on pion/webrtc with ICE
// servers taken from the loaded configuration.
type PionConnector struct {
	cfg *config.Config
	log zerolog.Logger
}

// NewPionConnector creates a connector using cfg's STUN/TURN servers.
func NewPionConnector(cfg *config.Config, log zerolog.Logger) *PionConnector {
	return &PionConnector{cfg: cfg, log: log}
}

// Connect creates a peer connection, attaches the capture track, and
// wires candidate and state notifications into handlers.
func (p *PionConnector) Connect(_ context.Context, track LocalTrack, handlers PeerHandlers) (PeerConn, error) {
	capture, ok := track.(*CaptureTrack)
	if !ok {
		return nil, fmt.Errorf("track %T is not a capture track", track)
	}

	iceServers := []pion.ICEServer{{URLs: p.cfg.GetSTUNServers()}}
	if turnServers := p.cfg.GetTURNServers(); turnServers != nil {
		username, password := p.cfg.GetTURNCredentials()
		iceServers = append(iceServers, pion.ICEServer{
			URLs:       turnServers,
			Username:   username,
			Credential: password,
		})
	}

	policy := pion.ICETransportPolicyAll
	if p.cfg.ForceRelay && p.cfg.GetTURNServers() != nil {
		policy = pion.ICETransportPolicyRelay
	}

	pc, err := pion.NewPeerConnection(pion.Configuration{
		ICEServers:         iceServers,
		ICETransportPolicy: policy,
	})
	if err != nil {
		return nil, err
	}

	if _, err := pc.AddTrack(capture.Local()); err != nil {
		pc.Close()
		return nil, err
	}

	pc.OnICECandidate(func(c *pion.ICECandidate) {
		if c == nil {
			return
		}
		b, err := json.Marshal(c.ToJSON())
		if err != nil {
			return
		}
		handlers.OnCandidate(b)
	})

	pc.OnConnectionStateChange(func(st pion.PeerConnectionState) {
		handlers.OnState(mapConnState(st))
	})

	// Remote audio rendering belongs to the playback collaborator; here
	// the inbound track is drained so RTCP keeps flowing.
	pc.OnTrack(func(remote *pion.TrackRemote, _ *pion.RTPReceiver) {
		p.log.Debug().Str("codec", remote.Codec().MimeType).Msg("remote track")
		for {
			if _, _, err := remote.ReadRTP(); err != nil {
				if err != io.EOF {
					p.log.Debug().Err(err).Msg("remote track closed")
				}
				return
			}
		}
	})

	return &pionConn{pc: pc}, nil
}

func mapConnState(st pion.PeerConnectionState) ConnState {
	switch st {
	case pion.PeerConnectionStateConnecting:
		return ConnStateConnecting
	case pion.PeerConnectionStateConnected:
		return ConnStateConnected
	case pion.PeerConnectionStateDisconnected:
		return ConnStateDisconnected
	case pion.PeerConnectionStateFailed:
		return ConnStateFailed
	default:
		return ConnStateClosed
	}
}

// pionConn adapts *pion.PeerConnection to the PeerConn resource
// interface, carrying descriptions as opaque JSON.
type pionConn struct {
	pc *pion.PeerConnection
}

func (c *pionConn) CreateOffer(context.Context) (json.RawMessage, error) {
	offer, err := c.pc.CreateOffer(nil)
	if err != nil {
		return nil, err
	}
	if err := c.pc.SetLocalDescription(offer); err != nil {
		return nil, err
	}
	return json.Marshal(c.pc.LocalDescription())
}

func (c *pionConn) AcceptOffer(_ context.Context, offer json.RawMessage) (json.RawMessage, error) {
	var desc pion.SessionDescription
	if err := json.Unmarshal(offer, &desc); err != nil {
		return nil, err
	}
	if err := c.pc.SetRemoteDescription(desc); err != nil {
		return nil, err
	}
	answer, err := c.pc.CreateAnswer(nil)
	if err != nil {
		return nil, err
	}
	if err := c.pc.SetLocalDescription(answer); err != nil {
		return nil, err
	}
	return json.Marshal(c.pc.LocalDescription())
}

func (c *pionConn) AcceptAnswer(answer json.RawMessage) error {
	var desc pion.SessionDescription
	if err := json.Unmarshal(answer, &desc); err != nil {
		return err
	}
	return c.pc.SetRemoteDescription(desc)
}

func (c *pionConn) AddRemoteCandidate(candidate json.RawMessage) error {
	var ice pion.ICECandidateInit
	if err := json.Unmarshal(candidate, &ice); err != nil {
		return err
	}
	return c.pc.AddICECandidate(ice)
}

func (c *pionConn) Close() error {
	return c.pc.Close()
}
