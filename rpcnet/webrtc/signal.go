// Package webrtc provides an alternate peer transport for auditpeerd: a
// net.Listener/Dial pair built on WebRTC data channels instead of raw TCP,
// for peers that sit behind NATs and cannot accept inbound connections.
// Connection setup is negotiated through a WAMP signaling server.
package webrtc

import (
	pionwebrtc "github.com/pion/webrtc/v2"
)

// OfferResponse carries the answer to an SDP offer, or the error that
// prevented one being produced.
type OfferResponse struct {
	Answer *pionwebrtc.SessionDescription
	Error  error
}

// OfferPromise wraps an incoming SDP offer together with a channel for
// asynchronously delivering the answer once the local PeerConnection is
// ready.
type OfferPromise struct {
	From     string
	Offer    pionwebrtc.SessionDescription
	RespChan chan<- OfferResponse
}

// Respond delivers answer (or err) back to whoever is waiting on this
// promise.
func (p *OfferPromise) Respond(answer *pionwebrtc.SessionDescription, err error) {
	p.RespChan <- OfferResponse{answer, err}
}

// Signal exchanges SDP offers and answers between peers that otherwise have
// no direct route to each other, so that a WebRTC PeerConnection can be
// established.
type Signal interface {
	// ID returns the identifier this peer is reachable at on the signaling
	// server, normally its advertise address.
	ID() string

	// Listen registers to receive incoming offers and forwards them to the
	// channel returned by Consumer.
	Listen() error

	// Consumer returns the channel of incoming offers.
	Consumer() <-chan OfferPromise

	// Offer sends an SDP offer to target and blocks for the answer.
	Offer(target string, offer pionwebrtc.SessionDescription) (*pionwebrtc.SessionDescription, error)

	// Close releases the connection to the signaling server.
	Close() error
}
