package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/thesujaljaiswal/Voice-Chat-Application/internal/call"
	"github.com/thesujaljaiswal/Voice-Chat-Application/internal/config"
	"github.com/thesujaljaiswal/Voice-Chat-Application/internal/logging"
	"github.com/thesujaljaiswal/Voice-Chat-Application/internal/protocol"
	"github.com/thesujaljaiswal/Voice-Chat-Application/internal/signalclient"
	"github.com/thesujaljaiswal/Voice-Chat-Application/internal/ui"
)

var (
	flagRoom     string
	flagRole     string
	flagServer   string
	flagSTUN     string
	flagTURN     string
	flagTURNUser string
	flagTURNPass string
	flagRelay    bool
)

var callCmd = &cobra.Command{
	Use:     "call",
	Aliases: []string{"c"},
	Short:   "Join a room and talk to the other party",
	Long: `Join a room on the signaling server as Customer or Agent and hold a
voice call with whoever occupies the other role.

Examples:
  voicecall call --room support-42 --role Customer
  voicecall call --room support-42 --role Agent --server ws://example.com/ws
  voicecall call --room support-42 --role Agent --relay`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCall()
	},
}

func runCall() error {
	role := protocol.Role(flagRole)
	if flagRoom == "" {
		return fmt.Errorf("no room specified")
	}
	if !role.Valid() {
		return fmt.Errorf("role must be %s or %s", protocol.RoleCustomer, protocol.RoleAgent)
	}

	log := logging.New()
	cfg := config.Load(config.Options{
		ServerURL:  flagServer,
		STUNServer: flagSTUN,
		TURNServer: flagTURN,
		TURNUser:   flagTURNUser,
		TURNPass:   flagTURNPass,
		ForceRelay: flagRelay,
	})

	stopSpinner := ui.RunConnectionSpinner("Connecting to server...")
	defer stopSpinner()
	client := signalclient.NewClient(cfg.ServerURL)
	if err := client.Connect(); err != nil {
		return err
	}
	defer client.Close()
	stopSpinner()

	handler := signalclient.NewHandler(client)
	go handler.Start()

	events := make(chan tea.Msg, 64)
	emit := func(m tea.Msg) {
		select {
		case events <- m:
		default:
		}
	}

	session := call.NewSession(
		&call.Microphone{Open: openMicrophone},
		call.NewPionConnector(cfg, log),
		&roomSignals{client: client, room: flagRoom},
		func(status string) { emit(ui.InfoMsg(status)) },
		log,
	)

	ctrl := &callController{
		session: session,
		client:  client,
		room:    flagRoom,
	}

	go routeEvents(handler, session, ctrl, emit, log)

	client.Join(flagRoom, role)

	model := ui.NewCallModel(flagRoom, role, ctrl, events)
	if _, err := tea.NewProgram(model).Run(); err != nil {
		return err
	}

	seconds := session.DurationSeconds()
	session.EndCall()
	ui.RenderCallSummary(ui.CallSummary{
		Status:   "Completed",
		Room:     flagRoom,
		Role:     role.String(),
		Duration: call.FormatDuration(seconds),
		Messages: int(ctrl.chatCount.Load()),
	})
	return nil
}

// routeEvents bridges the server event stream into the call session and
// the screen. It exits when the signaling transport is lost.
func routeEvents(h *signalclient.Handler, sess *call.Session, ctrl *callController, emit func(tea.Msg), log zerolog.Logger) {
	ctx := context.Background()
	for {
		select {
		case p := <-h.Presence:
			emit(ui.PresenceMsg(p))
		case msg := <-h.Ready:
			emit(ui.InfoMsg(msg))
		case msg := <-h.JoinError:
			emit(ui.InfoMsg(msg))
		case offer := <-h.Offer:
			go func(offer json.RawMessage) {
				if err := sess.ReceiveOffer(ctx, offer); err != nil {
					log.Warn().Err(err).Msg("answering offer failed")
				}
			}(offer)
		case answer := <-h.Answer:
			if err := sess.ReceiveAnswer(answer); err != nil {
				log.Warn().Err(err).Msg("applying answer failed")
			}
		case candidate := <-h.Candidate:
			sess.ReceiveCandidate(candidate)
		case chat := <-h.Chat:
			ctrl.chatCount.Add(1)
			emit(ui.ChatMsg(chat))
		case reason := <-h.CallEnded:
			sess.ReceiveCallEnded(reason)
		case <-h.Disconnected:
			sess.HandleTransportLoss()
			emit(ui.DisconnectedMsg{})
			return
		}
	}
}

// roomSignals sends the session's negotiation messages through the
// signaling client, scoped to one room.
type roomSignals struct {
	client *signalclient.Client
	room   string
}

func (r *roomSignals) SendOffer(offer json.RawMessage)         { r.client.SendOffer(r.room, offer) }
func (r *roomSignals) SendAnswer(answer json.RawMessage)       { r.client.SendAnswer(r.room, answer) }
func (r *roomSignals) SendCandidate(candidate json.RawMessage) { r.client.SendCandidate(r.room, candidate) }

// callController implements ui.Controller on top of the session and the
// signaling client. Key handlers must not block, so anything that can
// suspend runs in its own goroutine.
type callController struct {
	session   *call.Session
	client    *signalclient.Client
	room      string
	chatCount atomic.Int64
}

func (c *callController) StartCall() {
	go func() {
		_ = c.session.StartCall(context.Background())
	}()
}

func (c *callController) EndCall() {
	c.client.SendEndCall(c.room)
	c.session.EndCall()
}

func (c *callController) ToggleMute() bool {
	return c.session.ToggleMute()
}

func (c *callController) SendChat(text string) {
	c.client.SendChat(c.room, text)
}

func (c *callController) StateLabel() string {
	return c.session.State().String()
}

func (c *callController) DurationSeconds() int {
	return c.session.DurationSeconds()
}

// openMicrophone is the capture source for outgoing audio. Hardware
// capture is not wired up yet, so calls carry Opus DTX silence frames,
// which keeps the negotiated audio track alive end to end.
// TODO: replace with a portaudio/malgo capture source.
func openMicrophone(ctx context.Context) (call.SampleSource, error) {
	return call.NewSilenceSource(), nil
}

func init() {
	rootCmd.AddCommand(callCmd)

	callCmd.Flags().StringVarP(&flagRoom, "room", "m", "", "Room to join (required)")
	callCmd.Flags().StringVarP(&flagRole, "role", "o", string(protocol.RoleCustomer), "Role in the room: Customer or Agent")
	callCmd.Flags().StringVarP(&flagServer, "server", "d", "", "Custom signaling server URL")
	callCmd.Flags().StringVarP(&flagSTUN, "stun", "s", "", "Custom STUN server")
	callCmd.Flags().StringVarP(&flagTURN, "turn", "t", "", "Custom TURN server")
	callCmd.Flags().StringVarP(&flagTURNUser, "turn-user", "u", "", "TURN username")
	callCmd.Flags().StringVarP(&flagTURNPass, "turn-pass", "p", "", "TURN password")
	callCmd.Flags().BoolVarP(&flagRelay, "relay", "r", false, "Force relay mode")
}
