package rpcnet

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"

	"github.com/sirupsen/logrus"
)

// Handler is the set of operations the replication/consensus and ingress
// services must expose for the RPC server to dispatch onto. It is
// satisfied structurally: the replicator package's Service type implements
// it without declaring so.
type Handler interface {
	SubmitAudit(req SubmitAuditRequest, resp *SubmitAuditResponse) error
	WhisperAuditRequest(req WhisperAuditRequest, resp *WhisperAuditResponse) error
	ProposeBlock(req ProposeBlockRequest, resp *ProposeBlockResponse) error
	CommitBlock(req CommitBlockRequest, resp *CommitBlockResponse) error
	GetBlock(req GetBlockRequest, resp *GetBlockResponse) error
	SendHeartbeat(req SendHeartbeatRequest, resp *SendHeartbeatResponse) error
	TriggerElection(req TriggerElectionRequest, resp *TriggerElectionResponse) error
	NotifyLeadership(req NotifyLeadershipRequest, resp *NotifyLeadershipResponse) error
}

// dispatcher is the net/rpc-registered receiver. Its exported methods are
// the RPC method names peers and clients dial as "Replicator.<Method>".
// It simply forwards to Handler; the indirection exists so the server
// package never imports the replicator package (avoiding the obvious
// import cycle, since the replicator service calls back into the peer
// pool to gossip).
type dispatcher struct {
	handler Handler
}

func (d *dispatcher) SubmitAudit(req SubmitAuditRequest, resp *SubmitAuditResponse) error {
	return d.handler.SubmitAudit(req, resp)
}

func (d *dispatcher) WhisperAuditRequest(req WhisperAuditRequest, resp *WhisperAuditResponse) error {
	return d.handler.WhisperAuditRequest(req, resp)
}

func (d *dispatcher) ProposeBlock(req ProposeBlockRequest, resp *ProposeBlockResponse) error {
	return d.handler.ProposeBlock(req, resp)
}

func (d *dispatcher) CommitBlock(req CommitBlockRequest, resp *CommitBlockResponse) error {
	return d.handler.CommitBlock(req, resp)
}

func (d *dispatcher) GetBlock(req GetBlockRequest, resp *GetBlockResponse) error {
	return d.handler.GetBlock(req, resp)
}

func (d *dispatcher) SendHeartbeat(req SendHeartbeatRequest, resp *SendHeartbeatResponse) error {
	return d.handler.SendHeartbeat(req, resp)
}

func (d *dispatcher) TriggerElection(req TriggerElectionRequest, resp *TriggerElectionResponse) error {
	return d.handler.TriggerElection(req, resp)
}

func (d *dispatcher) NotifyLeadership(req NotifyLeadershipRequest, resp *NotifyLeadershipResponse) error {
	return d.handler.NotifyLeadership(req, resp)
}

// ServiceName is the net/rpc registration name methods are dialed under,
// e.g. "Replicator.SubmitAudit".
const ServiceName = "Replicator"

// Server listens for peer and client connections and dispatches RPCs onto
// a Handler, one goroutine per connection, JSON-encoded on the wire.
type Server struct {
	listener net.Listener
	rpc      *rpc.Server
	logger   *logrus.Entry
}

// NewServer creates a Server bound to bindAddress and registers handler
// under ServiceName. It does not start accepting connections; call Serve.
func NewServer(bindAddress string, handler Handler, logger *logrus.Entry) (*Server, error) {
	listener, err := net.Listen("tcp", bindAddress)
	if err != nil {
		logger.WithField("error", err).Error("failed to listen")
		return nil, err
	}

	return NewServerWithListener(listener, handler, logger)
}

// NewServerWithListener wraps an already-open net.Listener (e.g. a WebRTC
// Listener) instead of binding a TCP socket, and registers handler under
// ServiceName. It does not start accepting connections; call Serve.
func NewServerWithListener(listener net.Listener, handler Handler, logger *logrus.Entry) (*Server, error) {
	rpcServer := rpc.NewServer()
	if err := rpcServer.RegisterName(ServiceName, &dispatcher{handler: handler}); err != nil {
		return nil, err
	}

	return &Server{
		listener: listener,
		rpc:      rpcServer,
		logger:   logger,
	}, nil
}

// Addr returns the address the server is bound to, or "" for transports
// (such as WebRTC) with no conventional socket address.
func (s *Server) Addr() string {
	if a := s.listener.Addr(); a != nil {
		return a.String()
	}
	return ""
}

// Serve accepts connections until the listener is closed, serving each
// one as a JSON-RPC codec in its own goroutine.
func (s *Server) Serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.logger.WithField("error", err).Debug("listener closed")
			return
		}
		go s.rpc.ServeCodec(jsonrpc.NewServerCodec(conn))
	}
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	return s.listener.Close()
}
