package webrtc

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"time"

	"github.com/gammazero/nexus/v3/client"
	"github.com/gammazero/nexus/v3/wamp"
	pionwebrtc "github.com/pion/webrtc/v2"
	"github.com/sirupsen/logrus"
)

// errProcessingOffer is the WAMP error URI returned when a peer fails to
// produce an answer for an offer it received.
const errProcessingOffer = "io.auditchain.processing_offer"

// WampSignal implements Signal over a WAMP router reached through
// WebSockets, using one RPC procedure per peer identity.
type WampSignal struct {
	id        string
	routerURL string
	config    client.Config
	client    *client.Client
	consumer  chan OfferPromise
	logger    *logrus.Entry
}

// NewWampSignal connects to the WAMP signaling server at server, within
// realm, identifying this peer as id. If certFile exists it is trusted as
// the server's certificate authority; insecureSkipVerify disables
// certificate checking entirely (for tests only).
func NewWampSignal(
	server string,
	realm string,
	id string,
	certFile string,
	insecureSkipVerify bool,
	responseTimeout time.Duration,
	logger *logrus.Entry,
) (*WampSignal, error) {
	cfg := client.Config{
		Realm:           realm,
		ResponseTimeout: responseTimeout,
		Logger:          logger,
	}

	tlscfg := &tls.Config{}

	if insecureSkipVerify {
		logger.Debug("skipping verification of signal server certificate")
		tlscfg.InsecureSkipVerify = true
	} else if _, err := os.Stat(certFile); os.IsNotExist(err) {
		logger.Debug("no signal certificate file found, relying on platform trust store")
	} else {
		certPEM, err := ioutil.ReadFile(certFile)
		if err != nil {
			return nil, err
		}

		roots := x509.NewCertPool()
		if !roots.AppendCertsFromPEM(certPEM) {
			return nil, errors.New("failed to import signal certificate")
		}
		tlscfg.RootCAs = roots

		block, _ := pem.Decode(certPEM)
		if block == nil {
			return nil, errors.New("failed to decode signal certificate")
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, err
		}
		tlscfg.ServerName = cert.Subject.CommonName
	}

	cfg.TlsCfg = tlscfg

	s := &WampSignal{
		id:        id,
		routerURL: fmt.Sprintf("wss://%s", server),
		config:    cfg,
		consumer:  make(chan OfferPromise),
		logger:    logger,
	}

	if err := s.connect(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *WampSignal) connect() error {
	if s.client != nil && s.client.Connected() {
		return nil
	}

	cli, err := client.ConnectNet(context.Background(), s.routerURL, s.config)
	if err != nil {
		return err
	}
	s.client = cli
	return nil
}

// ID implements Signal.
func (s *WampSignal) ID() string {
	return s.id
}

// Listen implements Signal.
func (s *WampSignal) Listen() error {
	if err := s.client.Register(s.ID(), s.callHandler, nil); err != nil {
		s.logger.WithError(err).Error("failed to register signal procedure")
		return err
	}
	return nil
}

// Consumer implements Signal.
func (s *WampSignal) Consumer() <-chan OfferPromise {
	return s.consumer
}

// Offer implements Signal.
func (s *WampSignal) Offer(target string, offer pionwebrtc.SessionDescription) (*pionwebrtc.SessionDescription, error) {
	raw, err := json.Marshal(offer)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.config.ResponseTimeout)
	defer cancel()

	result, err := s.client.Call(ctx, target, nil, wamp.List{s.id, string(raw)}, nil, nil)
	if err != nil {
		return nil, err
	}

	sdp, ok := wamp.AsString(result.Arguments[0])
	if !ok {
		return nil, fmt.Errorf("malformed answer from %s", target)
	}

	answer := pionwebrtc.SessionDescription{}
	if err := json.Unmarshal([]byte(sdp), &answer); err != nil {
		return nil, err
	}

	return &answer, nil
}

// Close implements Signal.
func (s *WampSignal) Close() error {
	s.client.Unregister(s.ID())
	return s.client.Close()
}

func (s *WampSignal) callHandler(ctx context.Context, inv *wamp.Invocation) client.InvokeResult {
	if len(inv.Arguments) != 2 {
		return errResult(fmt.Sprintf("invocation should carry 2 arguments, got %d", len(inv.Arguments)))
	}

	from, ok := wamp.AsString(inv.Arguments[0])
	if !ok {
		return errResult("error reading invocation argument 0")
	}

	sdp, ok := wamp.AsString(inv.Arguments[1])
	if !ok {
		return errResult("error reading invocation argument 1")
	}

	offer := pionwebrtc.SessionDescription{}
	if err := json.Unmarshal([]byte(sdp), &offer); err != nil {
		return errResult(fmt.Sprintf("error parsing offer SDP: %v", err))
	}

	respCh := make(chan OfferResponse, 1)
	s.consumer <- OfferPromise{From: from, Offer: offer, RespChan: respCh}

	timer := time.NewTimer(s.config.ResponseTimeout)
	select {
	case <-timer.C:
		return errResult("timed out waiting for local answer")
	case resp := <-respCh:
		if resp.Error != nil {
			return errResult(resp.Error.Error())
		}
		raw, err := json.Marshal(resp.Answer)
		if err != nil {
			return errResult(fmt.Sprintf("error marshaling answer: %v", err))
		}
		return client.InvokeResult{Args: wamp.List{string(raw)}}
	}
}

func errResult(msg string) client.InvokeResult {
	return client.InvokeResult{Err: errProcessingOffer, Args: wamp.List{msg}}
}
