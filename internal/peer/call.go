package peer

import (
	"context"
	"encoding/json"
	"time"

	pion "github.com/pion/webrtc/v4"
	"go.uber.org/zap"

	"github.com/alamayub/omagle-clone/internal/config"
	"github.com/alamayub/omagle-clone/internal/signaling"
)

const (
	DefaultPingInterval   = time.Second
	DefaultConnectTimeout = 30 * time.Second

	dataChannelLabel = "omagle"
)

// End reasons reported in Summary.
const (
	ReasonCompleted   = "completed"
	ReasonPartnerLeft = "partner hung up"
	ReasonCancelled   = "cancelled"
)

// Status is a coarse progress step of a call.
type Status int

const (
	StatusConnecting Status = iota
	StatusWaiting
	StatusNegotiating
	StatusConnected
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "Connecting to relay..."
	case StatusWaiting:
		return "Waiting for a stranger..."
	case StatusNegotiating:
		return "Stranger found, negotiating..."
	case StatusConnected:
		return "Connected"
	default:
		return "unknown"
	}
}

// CallOptions tunes a call.
type CallOptions struct {
	// Name is sent to the partner in the hello message.
	Name    string
	Version string

	// Pings is the number of round trips after which the call ends. Zero
	// keeps the call up until either side hangs up.
	Pings        int
	PingInterval time.Duration

	// ConnectTimeout bounds the time from partner_found to an open data
	// channel.
	ConnectTimeout time.Duration

	// API overrides the pion API, e.g. to tune ICE gathering.
	API *pion.API

	Logger   *zap.Logger
	OnStatus func(Status)
}

// Summary describes a finished call.
type Summary struct {
	PeerID      string
	PartnerID   string
	PartnerName string
	SessionID   string
	Initiator   bool
	RoundTrips  int
	AverageRTT  time.Duration
	Duration    time.Duration
	Reason      string
}

// Run connects to the relay, waits for a partner, opens a data channel with it
// and measures round trips until the call ends.
func Run(ctx context.Context, cfg *config.Config, opts CallOptions) (*Summary, error) {
	if opts.PingInterval <= 0 {
		opts.PingInterval = DefaultPingInterval
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = DefaultConnectTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	log := opts.Logger.Named("peer")
	status := func(s Status) {
		if opts.OnStatus != nil {
			opts.OnStatus(s)
		}
	}

	status(StatusConnecting)
	client := NewClient(cfg.ServerURL, NewResolver(), log)
	if err := client.Connect(ctx); err != nil {
		return nil, err
	}
	defer client.Close()

	handler := NewHandler(client)
	go handler.Start()
	defer handler.Close()

	var peerID string
	select {
	case peerID = <-handler.Connected:
	case <-handler.Done:
		return nil, NewError("connect to relay", ErrConnectionClosed)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	log.Debug("registered with relay", zap.String("peer", peerID))

	status(StatusWaiting)
	var partner Partner
	for partner.ID == "" {
		select {
		case partner = <-handler.PartnerFound:
		case text := <-handler.Error:
			log.Warn("relay error while waiting", zap.String("error", text))
		case <-handler.Done:
			return nil, NewError("wait for partner", ErrConnectionClosed)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	log.Info("partner found",
		zap.String("partner", partner.ID),
		zap.String("session", partner.SessionID),
		zap.Bool("initiator", partner.Initiator))

	status(StatusNegotiating)
	pc, err := NewPeerConnection(opts.API, cfg)
	if err != nil {
		return nil, err
	}
	defer pc.Close()

	s := &session{
		client:  client,
		handler: handler,
		pc:      pc,
		opts:    opts,
		log:     log.With(zap.String("session", partner.SessionID)),
		status:  status,
		opened:  make(chan *pion.DataChannel, 1),
		inbox:   make(chan []byte, 64),
		failed:  make(chan struct{}, 1),
		summary: Summary{
			PeerID:    peerID,
			PartnerID: partner.ID,
			SessionID: partner.SessionID,
			Initiator: partner.Initiator,
		},
	}
	return s.run(ctx)
}

// session is one negotiated call with one partner. All fields except the
// channels are owned by the run loop.
type session struct {
	client  *Client
	handler *Handler
	pc      *pion.PeerConnection
	opts    CallOptions
	log     *zap.Logger
	status  func(Status)

	opened chan *pion.DataChannel
	inbox  chan []byte
	failed chan struct{}

	dc       *pion.DataChannel
	seq      uint32
	rttTotal time.Duration
	openedAt time.Time
	summary  Summary
}

func (s *session) run(ctx context.Context) (*Summary, error) {
	s.pc.OnICECandidate(func(c *pion.ICECandidate) {
		if c == nil {
			return
		}
		payload, err := json.Marshal(c.ToJSON())
		if err != nil {
			return
		}
		if err := s.client.Send(&signaling.Message{Type: signaling.MessageTypeCandidate, Payload: payload}); err != nil {
			s.log.Debug("candidate not sent", zap.Error(err))
		}
	})

	s.pc.OnICEConnectionStateChange(func(state pion.ICEConnectionState) {
		s.log.Debug("ice state", zap.String("state", state.String()))
		if state == pion.ICEConnectionStateFailed {
			select {
			case s.failed <- struct{}{}:
			default:
			}
		}
	})

	if s.summary.Initiator {
		dc, err := s.pc.CreateDataChannel(dataChannelLabel, nil)
		if err != nil {
			return nil, NewError("create data channel", err)
		}
		s.attach(dc)
		if err := s.sendOffer(); err != nil {
			return nil, err
		}
	} else {
		s.pc.OnDataChannel(s.attach)
	}

	connectTimer := time.NewTimer(s.opts.ConnectTimeout)
	defer connectTimer.Stop()

	var pingC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			s.hangUp()
			return s.finish(ReasonCancelled), nil

		case <-s.handler.HangUp:
			if s.dc == nil {
				return nil, NewError("negotiate", ErrPartnerLeft)
			}
			return s.finish(ReasonPartnerLeft), nil

		case <-s.handler.Done:
			return nil, NewError("call", ErrConnectionClosed)

		case text := <-s.handler.Error:
			s.log.Warn("relay error", zap.String("error", text))

		case msg := <-s.handler.Signal:
			if err := s.handleSignal(msg); err != nil {
				s.hangUp()
				return nil, err
			}

		case dc := <-s.opened:
			s.dc = dc
			s.openedAt = time.Now()
			connectTimer.Stop()
			s.status(StatusConnected)
			s.sendChannel(ChannelMessageHello, HelloPayload{Name: s.opts.Name, Version: s.opts.Version})

			ticker := time.NewTicker(s.opts.PingInterval)
			defer ticker.Stop()
			pingC = ticker.C

		case data := <-s.inbox:
			done, err := s.handleChannelMessage(data)
			if err != nil {
				s.log.Debug("bad data channel message", zap.Error(err))
				continue
			}
			if done {
				s.sendChannel(ChannelMessageBye, struct{}{})
				s.hangUp()
				return s.finish(ReasonCompleted), nil
			}

		case <-pingC:
			s.seq++
			s.sendChannel(ChannelMessagePing, PingPayload{Seq: s.seq, SentAt: time.Now().UnixNano()})

		case <-s.failed:
			s.hangUp()
			return nil, WrapError("call", ErrConnectionFailed, "ICE failed")

		case <-connectTimer.C:
			s.hangUp()
			return nil, WrapError("negotiate", ErrTimeout, "data channel did not open")
		}
	}
}

// attach wires a data channel's callbacks into the run loop.
func (s *session) attach(dc *pion.DataChannel) {
	dc.OnOpen(func() {
		select {
		case s.opened <- dc:
		default:
		}
	})
	dc.OnMessage(func(msg pion.DataChannelMessage) {
		select {
		case s.inbox <- msg.Data:
		default:
			s.log.Debug("data channel inbox full, message dropped")
		}
	})
}

func (s *session) sendOffer() error {
	offer, err := s.pc.CreateOffer(nil)
	if err != nil {
		return NewError("create offer", err)
	}
	if err := s.pc.SetLocalDescription(offer); err != nil {
		return NewError("set local description", err)
	}
	payload, err := encodeDescription(s.pc.LocalDescription())
	if err != nil {
		return err
	}
	return s.send(signaling.MessageTypeOffer, payload)
}

// handleSignal applies an offer, answer or candidate relayed from the partner.
func (s *session) handleSignal(msg *signaling.Message) error {
	switch msg.Type {
	case signaling.MessageTypeOffer:
		if s.summary.Initiator {
			return WrapError("handle signal", ErrUnexpectedSignal, "offer sent to the initiator")
		}
		offer, err := decodeDescription(msg.Payload, pion.SDPTypeOffer)
		if err != nil {
			return err
		}
		if err := s.pc.SetRemoteDescription(offer); err != nil {
			return NewError("set remote description", err)
		}
		answer, err := s.pc.CreateAnswer(nil)
		if err != nil {
			return NewError("create answer", err)
		}
		if err := s.pc.SetLocalDescription(answer); err != nil {
			return NewError("set local description", err)
		}
		payload, err := encodeDescription(s.pc.LocalDescription())
		if err != nil {
			return err
		}
		// Sending the answer also tells the relay our remote description is set.
		return s.send(signaling.MessageTypeAnswer, payload)

	case signaling.MessageTypeAnswer:
		if !s.summary.Initiator {
			return WrapError("handle signal", ErrUnexpectedSignal, "answer sent to the answerer")
		}
		answer, err := decodeDescription(msg.Payload, pion.SDPTypeAnswer)
		if err != nil {
			return err
		}
		if err := s.pc.SetRemoteDescription(answer); err != nil {
			return NewError("set remote description", err)
		}
		return s.send(signaling.MessageTypeDescriptionSet, nil)

	case signaling.MessageTypeCandidate:
		ice, err := decodeCandidate(msg.Payload)
		if err != nil {
			s.log.Debug("ignoring candidate", zap.Error(err))
			return nil
		}
		if err := s.pc.AddICECandidate(ice); err != nil {
			s.log.Warn("add ICE candidate failed", zap.Error(err))
		}
		return nil
	}
	return nil
}

// handleChannelMessage processes one data channel frame and reports whether
// the requested number of round trips has been reached.
func (s *session) handleChannelMessage(data []byte) (bool, error) {
	msg, err := DecodeChannelMessage(data)
	if err != nil {
		return false, err
	}

	switch msg.Type {
	case ChannelMessageHello:
		var hello HelloPayload
		if err := msg.DecodePayload(&hello); err != nil {
			return false, err
		}
		s.summary.PartnerName = hello.Name
		s.log.Debug("partner says hello", zap.String("name", hello.Name), zap.String("version", hello.Version))

	case ChannelMessagePing:
		var ping PingPayload
		if err := msg.DecodePayload(&ping); err != nil {
			return false, err
		}
		s.sendChannel(ChannelMessagePong, ping)

	case ChannelMessagePong:
		var pong PingPayload
		if err := msg.DecodePayload(&pong); err != nil {
			return false, err
		}
		rtt := time.Since(time.Unix(0, pong.SentAt))
		s.summary.RoundTrips++
		s.rttTotal += rtt
		s.log.Debug("round trip", zap.Uint32("seq", pong.Seq), zap.Duration("rtt", rtt))
		return s.opts.Pings > 0 && s.summary.RoundTrips >= s.opts.Pings, nil

	case ChannelMessageBye:
		s.log.Debug("partner is done")

	default:
		return false, WrapError("handle channel message", ErrUnknownMessage, msg.Type)
	}
	return false, nil
}

func (s *session) send(kind string, payload json.RawMessage) error {
	if err := s.client.Send(&signaling.Message{Type: kind, Payload: payload}); err != nil {
		return NewError("send "+kind, err)
	}
	return nil
}

func (s *session) sendChannel(kind string, payload any) {
	if s.dc == nil {
		return
	}
	data, err := EncodeChannelMessage(kind, payload)
	if err != nil {
		s.log.Debug("encode channel message", zap.Error(err))
		return
	}
	if err := s.dc.Send(data); err != nil {
		s.log.Debug("data channel send failed", zap.String("type", kind), zap.Error(err))
	}
}

func (s *session) hangUp() {
	if err := s.send(signaling.MessageTypeHangUp, nil); err != nil {
		s.log.Debug("hang up not sent", zap.Error(err))
	}
}

func (s *session) finish(reason string) *Summary {
	s.summary.Reason = reason
	if s.summary.RoundTrips > 0 {
		s.summary.AverageRTT = s.rttTotal / time.Duration(s.summary.RoundTrips)
	}
	if !s.openedAt.IsZero() {
		s.summary.Duration = time.Since(s.openedAt)
	}
	return &s.summary
}
