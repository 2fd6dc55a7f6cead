package chainstore

import "fmt"

// ErrType identifies the kind of failure a chainstore operation hit.
type ErrType uint32

const (
	// NotFound means the requested key has no record.
	NotFound ErrType = iota
	// Corrupt means a stored record could not be decoded.
	Corrupt
	// OutOfOrder means an append's id did not immediately follow the
	// store's current head.
	OutOfOrder
	// AlreadyExists means an append's id duplicates a stored record.
	AlreadyExists
)

// StoreErr is the typed error returned by chainstore operations.
type StoreErr struct {
	dataType string
	errType  ErrType
	key      string
}

// NewStoreErr builds a StoreErr for dataType (e.g. "block", "meta") and key.
func NewStoreErr(dataType string, errType ErrType, key string) StoreErr {
	return StoreErr{dataType: dataType, errType: errType, key: key}
}

// Error implements the error interface.
func (e StoreErr) Error() string {
	m := ""
	switch e.errType {
	case NotFound:
		m = "Not Found"
	case Corrupt:
		m = "Corrupt"
	case OutOfOrder:
		m = "Out Of Order"
	case AlreadyExists:
		m = "Already Exists"
	}
	return fmt.Sprintf("%s, %s, %s", e.dataType, e.key, m)
}

// IsStore reports whether err is a StoreErr of the given kind.
func IsStore(err error, t ErrType) bool {
	storeErr, ok := err.(StoreErr)
	return ok && storeErr.errType == t
}
