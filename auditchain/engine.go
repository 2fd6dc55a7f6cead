// Package auditchain assembles the component packages (keys, stores,
// transport, replication service, HTTP status service) into a runnable
// peer: Engine.
package auditchain

import (
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mosaicnetworks/auditchain/chainstore"
	"github.com/mosaicnetworks/auditchain/cluster"
	"github.com/mosaicnetworks/auditchain/config"
	"github.com/mosaicnetworks/auditchain/httpapi"
	"github.com/mosaicnetworks/auditchain/keys"
	"github.com/mosaicnetworks/auditchain/mempool"
	"github.com/mosaicnetworks/auditchain/replicator"
	"github.com/mosaicnetworks/auditchain/rpcnet"
	"github.com/mosaicnetworks/auditchain/rpcnet/webrtc"
)

// Engine is a fully wired auditchain peer: configuration, persisted key,
// stores, RPC transport, the replication/consensus service, and the
// optional HTTP status service.
type Engine struct {
	Config *config.Config

	Key *rsa.PrivateKey

	Mempool    replicator.MempoolStore
	Meta       *chainstore.MetaStore
	Body       *chainstore.BodyStore
	Heartbeats *cluster.HeartbeatTable
	Election   *cluster.ElectionState

	Pool    *rpcnet.Pool
	Server  *rpcnet.Server
	Service *replicator.Service

	HTTPService *httpapi.Service

	webRTCListener *webrtc.Listener

	shutdownCh chan struct{}
}

// NewEngine creates an Engine from config; call Init before Run.
func NewEngine(cfg *config.Config) *Engine {
	return &Engine{
		Config:     cfg,
		shutdownCh: make(chan struct{}),
	}
}

// Init wires every component in order: key, stores, transport, services,
// HTTP service.
func (e *Engine) Init() error {
	if err := e.initKey(); err != nil {
		return err
	}
	if err := e.initStores(); err != nil {
		return err
	}
	if err := e.initTransport(); err != nil {
		return err
	}
	if err := e.initServices(); err != nil {
		return err
	}
	if err := e.initServer(); err != nil {
		return err
	}
	if err := e.initHTTPService(); err != nil {
		return err
	}
	return nil
}

func (e *Engine) initKey() error {
	pemKey := keys.NewPemKey(e.Config.DataDir)

	priv, err := pemKey.ReadKey()
	if err != nil {
		e.Config.Logger().WithError(err).Warn("cannot read private key from file, generating one")

		dump, genErr := keys.GeneratePemKey()
		if genErr != nil {
			return fmt.Errorf("cannot generate a new private key: %w", genErr)
		}

		priv, err = pemKey.ReadKeyFromBuf([]byte(dump.PrivateKey))
		if err != nil {
			return err
		}
		if err := pemKey.WriteKey(priv); err != nil {
			return err
		}

		e.Config.Logger().Info("created a new key")
	}

	e.Key = priv
	return nil
}

func (e *Engine) initStores() error {
	meta, err := chainstore.NewMetaStore(e.Config.DataDir)
	if err != nil {
		return err
	}
	body, err := chainstore.NewBodyStore(e.Config.DataDir)
	if err != nil {
		return err
	}

	e.Meta = meta
	e.Body = body
	e.Heartbeats = cluster.NewHeartbeatTable()
	e.Election = cluster.NewElectionState()

	if e.Config.PersistentPool {
		pp, err := mempool.NewPersistent(e.Config.BadgerDir(), e.Config.Logger())
		if err != nil {
			return err
		}
		e.Mempool = pp
	} else {
		e.Mempool = mempool.New()
	}

	return nil
}

func (e *Engine) initTransport() error {
	e.Pool = rpcnet.NewPool(e.Config.RPCTimeout, e.Config.Logger())

	if e.Config.WebRTC {
		signal, err := webrtc.NewWampSignal(
			e.Config.SignalAddr,
			e.Config.SignalRealm,
			e.Config.Advertise(),
			e.Config.CertFile(),
			e.Config.SignalSkipVerify,
			e.Config.RPCTimeout,
			e.Config.Logger(),
		)
		if err != nil {
			return err
		}

		e.webRTCListener = webrtc.NewListener(signal, e.Config.ICEServers(), e.Config.Logger())
		e.Pool.Dial = e.webRTCListener.Dial
	}

	return nil
}

func (e *Engine) initServices() error {
	e.Service = replicator.New(
		e.Config.Advertise(),
		e.Config.Peers,
		e.Config.StrictVerify,
		e.Mempool,
		e.Meta,
		e.Body,
		e.Heartbeats,
		e.Election,
		e.Pool,
		e.Config.Logger(),
	)

	return nil
}

func (e *Engine) initServer() error {
	if e.webRTCListener != nil {
		server, err := rpcnet.NewServerWithListener(e.webRTCListener, e.Service, e.Config.Logger())
		if err != nil {
			return err
		}
		e.Server = server
		return nil
	}

	server, err := rpcnet.NewServer(e.Config.BindAddr, e.Service, e.Config.Logger())
	if err != nil {
		return err
	}

	e.Server = server
	return nil
}

func (e *Engine) initHTTPService() error {
	if e.Config.NoService {
		return nil
	}

	e.HTTPService = httpapi.NewService(
		e.Config.ServiceAddr,
		e.Config.Peers,
		e.Mempool,
		e.Meta,
		e.Body,
		e.Heartbeats,
		e.Config.Logger(),
	)

	return nil
}

// Run starts accepting RPC connections, serving the HTTP status API, and
// the heartbeat/election timer loops. It blocks until Shutdown is called.
func (e *Engine) Run() {
	go e.Server.Serve()

	if e.HTTPService != nil {
		go e.HTTPService.Serve()
	}

	heartbeat := time.NewTicker(e.Config.HeartbeatTimeout)
	election := time.NewTicker(e.Config.ElectionTimeout)
	defer heartbeat.Stop()
	defer election.Stop()

	for {
		select {
		case <-heartbeat.C:
			e.sendHeartbeats()
		case <-election.C:
			e.maybeTriggerElection()
		case <-e.shutdownCh:
			return
		}
	}
}

// Shutdown stops the Run loop and closes the RPC server and peer pool.
func (e *Engine) Shutdown() {
	close(e.shutdownCh)
	e.Server.Close()
	e.Pool.Close()
}

func (e *Engine) sendHeartbeats() {
	self := e.Config.Advertise()
	req := rpcnet.SendHeartbeatRequest{
		FromAddress:          self,
		CurrentLeaderAddress: e.Election.GetLeader(),
		LatestBlockID:        e.Meta.LastID(),
		MemPoolSize:          e.Mempool.Size(),
	}

	for _, peer := range e.Config.Peers {
		go func(peer string) {
			if _, err := e.Pool.SendHeartbeat(peer, req, e.Config.RPCTimeout); err != nil {
				e.Config.Logger().WithFields(logrus.Fields{"peer": peer, "error": err}).Debug("heartbeat failed")
			}
		}(peer)
	}
}

// maybeTriggerElection calls for a leadership vote only when this node
// currently believes there is no leader.
func (e *Engine) maybeTriggerElection() {
	if e.Election.GetLeader() != "" {
		return
	}

	self := e.Config.Advertise()
	votes := 1
	for _, peer := range e.Config.Peers {
		resp, err := e.Pool.TriggerElection(peer, rpcnet.TriggerElectionRequest{CandidateAddress: self}, e.Config.RPCTimeout)
		if err != nil {
			e.Config.Logger().WithFields(logrus.Fields{"peer": peer, "error": err}).Debug("trigger election failed")
			continue
		}
		if resp.Vote {
			votes++
		}
	}

	if votes*2 > len(e.Config.Peers)+1 {
		e.Election.SetLeader(self)
		for _, peer := range e.Config.Peers {
			go func(peer string) {
				if _, err := e.Pool.NotifyLeadership(peer, rpcnet.NotifyLeadershipRequest{LeaderAddress: self}, e.Config.RPCTimeout); err != nil {
					e.Config.Logger().WithFields(logrus.Fields{"peer": peer, "error": err}).Debug("notify leadership failed")
				}
			}(peer)
		}
	}
}
