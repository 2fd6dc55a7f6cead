// Package httpapi exposes a read-only HTTP status surface over a peer's
// chain head, mempool size, heartbeat table and peer list.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/mosaicnetworks/auditchain/chainstore"
	"github.com/mosaicnetworks/auditchain/cluster"
)

// MempoolSizer is the subset of mempool.Pool the stats endpoint needs.
type MempoolSizer interface {
	Size() int
}

// Service registers read-only status handlers and optionally serves them.
type Service struct {
	sync.Mutex

	bindAddress string
	peers       []string
	mempool     MempoolSizer
	meta        *chainstore.MetaStore
	body        *chainstore.BodyStore
	heartbeats  *cluster.HeartbeatTable
	logger      *logrus.Entry
}

// Stats is the payload returned by GET /stats.
type Stats struct {
	LastBlockID int64               `json:"last_block_id"`
	LastHash    string              `json:"last_hash"`
	MempoolSize int                 `json:"mempool_size"`
	Heartbeats  []cluster.Heartbeat `json:"heartbeats"`
}

// NewService builds a Service and registers its handlers with the
// DefaultServeMux, so an embedding application can share the same
// address:port.
func NewService(
	bindAddress string,
	peers []string,
	mempool MempoolSizer,
	meta *chainstore.MetaStore,
	body *chainstore.BodyStore,
	heartbeats *cluster.HeartbeatTable,
	logger *logrus.Entry,
) *Service {
	s := &Service{
		bindAddress: bindAddress,
		peers:       peers,
		mempool:     mempool,
		meta:        meta,
		body:        body,
		heartbeats:  heartbeats,
		logger:      logger,
	}
	s.registerHandlers()
	return s
}

func (s *Service) registerHandlers() {
	s.logger.Debug("registering auditchain API handlers")
	http.HandleFunc("/stats", s.makeHandler(s.GetStats))
	http.HandleFunc("/block/", s.makeHandler(s.GetBlock))
	http.HandleFunc("/peers", s.makeHandler(s.GetPeers))
}

func (s *Service) makeHandler(fn func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.Lock()
		defer s.Unlock()

		w.Header().Set("Access-Control-Allow-Origin", "*")
		fn(w, r)
	}
}

// Serve blocks, serving the DefaultServeMux. Not necessary to call when an
// embedding application already serves that mux on the same address.
func (s *Service) Serve() {
	s.logger.WithField("bind_address", s.bindAddress).Debug("serving auditchain API")
	if err := http.ListenAndServe(s.bindAddress, nil); err != nil {
		s.logger.WithError(err).Error("http service stopped")
	}
}

// GetStats handles GET /stats.
func (s *Service) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := Stats{
		LastBlockID: s.meta.LastID(),
		LastHash:    s.meta.LastHash(),
		MempoolSize: s.mempool.Size(),
		Heartbeats:  s.heartbeats.All(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// GetBlock handles GET /block/{id}.
func (s *Service) GetBlock(w http.ResponseWriter, r *http.Request) {
	param := strings.TrimPrefix(r.URL.Path, "/block/")

	id, err := strconv.ParseInt(param, 10, 64)
	if err != nil {
		s.logger.WithError(err).Errorf("parsing block id %q", param)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	block, err := s.body.Get(id)
	if err != nil {
		status := http.StatusInternalServerError
		if chainstore.IsStore(err, chainstore.NotFound) {
			status = http.StatusNotFound
		}
		s.logger.WithError(err).Errorf("retrieving block %d", id)
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(block)
}

// GetPeers handles GET /peers.
func (s *Service) GetPeers(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.peers)
}
