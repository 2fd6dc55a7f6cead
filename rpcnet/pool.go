package rpcnet

import (
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Pool holds one persistent RPC client per peer address, dialing lazily
// and redialing after a failed call. There is no retry at this layer:
// callers that need resilience to a single failed attempt must retry
// themselves.
type Pool struct {
	l       sync.Mutex
	clients map[string]*rpc.Client
	timeout time.Duration
	logger  *logrus.Entry

	// Dial opens a connection to target. It defaults to a plain TCP dial;
	// set it to an alternate transport's Dial method (e.g. a WebRTC
	// Listener) to route peer RPCs over it instead.
	Dial func(target string, timeout time.Duration) (net.Conn, error)
}

// NewPool creates an empty Pool. timeout bounds connection dialing; each
// RPC call is bounded by the deadline passed to CallWithDeadline.
func NewPool(timeout time.Duration, logger *logrus.Entry) *Pool {
	return &Pool{
		clients: make(map[string]*rpc.Client),
		timeout: timeout,
		logger:  logger,
		Dial:    dialTCP,
	}
}

func dialTCP(target string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout("tcp", target, timeout)
}

func (p *Pool) getClient(target string) (*rpc.Client, error) {
	p.l.Lock()
	defer p.l.Unlock()

	if c, ok := p.clients[target]; ok {
		return c, nil
	}

	conn, err := p.Dial(target, p.timeout)
	if err != nil {
		return nil, err
	}

	client := jsonrpc.NewClient(conn)
	p.clients[target] = client
	return client, nil
}

func (p *Pool) dropClient(target string) {
	p.l.Lock()
	defer p.l.Unlock()
	delete(p.clients, target)
}

// CallWithDeadline invokes the named method ("SubmitAudit", etc.) on
// target with a per-call deadline. A failed call drops the cached client
// so the next call redials.
func (p *Pool) CallWithDeadline(target, method string, deadline time.Duration, args, reply interface{}) error {
	client, err := p.getClient(target)
	if err != nil {
		return err
	}

	call := client.Go(fmt.Sprintf("%s.%s", ServiceName, method), args, reply, make(chan *rpc.Call, 1))

	select {
	case <-call.Done:
		if call.Error != nil {
			p.dropClient(target)
			return call.Error
		}
		return nil
	case <-time.After(deadline):
		p.dropClient(target)
		return fmt.Errorf("rpcnet: call %s to %s exceeded deadline %s", method, target, deadline)
	}
}

// Close closes every pooled client connection.
func (p *Pool) Close() {
	p.l.Lock()
	defer p.l.Unlock()
	for target, c := range p.clients {
		c.Close()
		delete(p.clients, target)
	}
}
