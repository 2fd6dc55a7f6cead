package webrtc

import (
	"fmt"
	"net"
	"sync"
	"time"

	pionwebrtc "github.com/pion/webrtc/v2"
	"github.com/sirupsen/logrus"
)

// Listener implements net.Listener on top of WebRTC PeerConnections,
// accepting one net.Conn per data channel negotiated through Signal. Dial
// establishes outbound connections the same way.
type Listener struct {
	mu              sync.Mutex
	peerConnections map[string]*pionwebrtc.PeerConnection

	iceServers []pionwebrtc.ICEServer
	signal     Signal
	incoming   chan net.Conn
	logger     *logrus.Entry
}

// NewListener starts listening for incoming offers over signal.
func NewListener(signal Signal, iceServers []pionwebrtc.ICEServer, logger *logrus.Entry) *Listener {
	l := &Listener{
		peerConnections: make(map[string]*pionwebrtc.PeerConnection),
		iceServers:      iceServers,
		signal:          signal,
		incoming:        make(chan net.Conn),
		logger:          logger,
	}
	go l.listen()
	return l
}

func (l *Listener) listen() {
	go l.signal.Listen()

	for offerPromise := range l.signal.Consumer() {
		pc, err := l.newPeerConnection(false)
		if err != nil {
			l.logger.WithError(err).Error("creating peer connection for offer")
			offerPromise.Respond(nil, err)
			continue
		}

		if err := pc.SetRemoteDescription(offerPromise.Offer); err != nil {
			offerPromise.Respond(nil, err)
			continue
		}

		answer, err := pc.CreateAnswer(nil)
		if err != nil {
			offerPromise.Respond(nil, err)
			continue
		}

		if err := pc.SetLocalDescription(answer); err != nil {
			offerPromise.Respond(nil, err)
			continue
		}

		offerPromise.Respond(&answer, nil)

		l.mu.Lock()
		l.peerConnections[offerPromise.From] = pc
		l.mu.Unlock()
	}
}

func (l *Listener) newPeerConnection(createDataChannel bool) (*pionwebrtc.PeerConnection, error) {
	settings := pionwebrtc.SettingEngine{}
	settings.DetachDataChannels()
	api := pionwebrtc.NewAPI(pionwebrtc.WithSettingEngine(settings))

	pc, err := api.NewPeerConnection(pionwebrtc.Configuration{ICEServers: l.iceServers})
	if err != nil {
		return nil, err
	}

	pc.OnICEConnectionStateChange(func(state pionwebrtc.ICEConnectionState) {
		l.logger.WithField("state", state.String()).Debug("ICE connection state changed")
	})

	if createDataChannel {
		dc, err := pc.CreateDataChannel("auditchain", nil)
		if err != nil {
			return nil, err
		}
		l.pipeDataChannel(dc)
	} else {
		pc.OnDataChannel(func(dc *pionwebrtc.DataChannel) {
			l.pipeDataChannel(dc)
		})
	}

	return pc, nil
}

func (l *Listener) pipeDataChannel(dc *pionwebrtc.DataChannel) {
	dc.OnOpen(func() {
		raw, err := dc.Detach()
		if err != nil {
			l.logger.WithError(err).Error("detaching data channel")
			return
		}
		l.incoming <- NewConn(raw)
	})
}

// Dial establishes a new PeerConnection with target, negotiated through
// Signal, and returns the resulting net.Conn once the data channel opens or
// timeout elapses.
func (l *Listener) Dial(target string, timeout time.Duration) (net.Conn, error) {
	pc, err := l.newPeerConnection(true)
	if err != nil {
		return nil, err
	}

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return nil, err
	}
	if err := pc.SetLocalDescription(offer); err != nil {
		return nil, err
	}

	answer, err := l.signal.Offer(target, offer)
	if err != nil {
		return nil, err
	}
	if answer == nil {
		return nil, fmt.Errorf("no answer from %s", target)
	}
	if err := pc.SetRemoteDescription(*answer); err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.peerConnections[target] = pc
	l.mu.Unlock()

	select {
	case <-time.After(timeout):
		return nil, fmt.Errorf("dial to %s timed out", target)
	case conn := <-l.incoming:
		return conn, nil
	}
}

// Accept implements net.Listener.
func (l *Listener) Accept() (net.Conn, error) {
	conn, ok := <-l.incoming
	if !ok {
		return nil, fmt.Errorf("webrtc listener closed")
	}
	return conn, nil
}

// Close implements net.Listener.
func (l *Listener) Close() error {
	err := l.signal.Close()

	l.mu.Lock()
	for _, pc := range l.peerConnections {
		pc.Close()
	}
	l.mu.Unlock()

	return err
}

// Addr implements net.Listener. WebRTC connections have no bound socket
// address; peers are addressed by their signaling ID instead.
func (l *Listener) Addr() net.Addr { return nil }

// AdvertiseAddr returns the identifier this listener is reachable at on the
// signaling server.
func (l *Listener) AdvertiseAddr() string { return l.signal.ID() }
