package mempool

import (
	"bytes"
	"fmt"

	"github.com/dgraph-io/badger"
	"github.com/mosaicnetworks/auditchain/audit"
	"github.com/sirupsen/logrus"
	"github.com/ugorji/go/codec"
)

const reqIDPrefix = "req"

// PersistentPool layers a Pool with a badger-backed durable copy, so that a
// restarted peer reloads its pending audits instead of starting empty. The
// in-memory Pool remains the source of truth for reads; badger is best
// effort and never fails an Append.
type PersistentPool struct {
	*Pool
	db     *badger.DB
	logger *logrus.Entry
}

// NewPersistent opens (or creates) a badger database at path and loads
// whatever audits it already holds into a fresh in-memory Pool.
func NewPersistent(path string, logger *logrus.Entry) (*PersistentPool, error) {
	opts := badger.DefaultOptions(path)
	opts.SyncWrites = false

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	pp := &PersistentPool{
		Pool:   New(),
		db:     db,
		logger: logger,
	}

	if err := pp.reload(); err != nil {
		db.Close()
		return nil, err
	}

	return pp, nil
}

func (pp *PersistentPool) reload() error {
	return pp.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(reqIDPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var a audit.Audit
			err := it.Item().Value(func(val []byte) error {
				return unmarshalAudit(val, &a)
			})
			if err != nil {
				return err
			}
			pp.Pool.Append(a)
		}
		return nil
	})
}

// Append stores a in the in-memory pool and then mirrors it to badger in
// the same call. A badger write failure is logged and never surfaces to the
// caller: losing the durable copy only costs replay-on-restart, not
// correctness, since every peer already holds the audit in memory.
func (pp *PersistentPool) Append(a audit.Audit) {
	pp.Pool.Append(a)

	val, err := marshalAudit(&a)
	if err != nil {
		pp.logger.WithError(err).WithField("req_id", a.ReqID).Error("marshal audit for persistence")
		return
	}

	err = pp.db.Update(func(txn *badger.Txn) error {
		return txn.Set(reqIDKey(a.ReqID), val)
	})
	if err != nil {
		pp.logger.WithError(err).WithField("req_id", a.ReqID).Error("persist audit to badger")
	}
}

// RemoveBatch removes reqIDs from the in-memory pool and from badger.
func (pp *PersistentPool) RemoveBatch(reqIDs []string) {
	pp.Pool.RemoveBatch(reqIDs)

	err := pp.db.Update(func(txn *badger.Txn) error {
		for _, id := range reqIDs {
			if err := txn.Delete(reqIDKey(id)); err != nil && err != badger.ErrKeyNotFound {
				return err
			}
		}
		return nil
	})
	if err != nil {
		pp.logger.WithError(err).Error("remove audits from badger")
	}
}

// Close releases the underlying badger database.
func (pp *PersistentPool) Close() error {
	return pp.db.Close()
}

func reqIDKey(reqID string) []byte {
	return []byte(fmt.Sprintf("%s_%s", reqIDPrefix, reqID))
}

func marshalAudit(a *audit.Audit) ([]byte, error) {
	b := new(bytes.Buffer)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	enc := codec.NewEncoder(b, jh)
	if err := enc.Encode(a); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func unmarshalAudit(data []byte, a *audit.Audit) error {
	b := bytes.NewBuffer(data)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	dec := codec.NewDecoder(b, jh)
	return dec.Decode(a)
}
