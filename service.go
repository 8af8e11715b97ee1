package gows

import (
	"errors"
	"fmt"
	"sync"

	"github.com/qntx/gows/logger"
)

// Option configures a Service and returns an error if configuration fails.
type Option func(*options) error

type options struct {
	logger logger.Interface
}

// WithLogger sets the logger used for connection lifecycle entries.
//
// Returns an error if the logger is nil.
func WithLogger(l logger.Interface) Option {
	return func(o *options) error {
		if l == nil {
			return errors.New("logger cannot be nil")
		}

		o.logger = l

		return nil
	}
}

// Service opens WebSocket connections whose events are delivered to an
// application dispatcher as messages of type M.
type Service[M any] struct {
	transport  Transport
	dispatcher Dispatcher[M]
	logger     logger.Interface
}

// New creates a service that opens connections on transport and dispatches the
// resulting messages to dispatcher.
func New[M any](transport Transport, dispatcher Dispatcher[M], opts ...Option) (*Service[M], error) {
	if transport == nil {
		return nil, ErrNilTransport
	}

	if dispatcher == nil {
		return nil, ErrNilDispatcher
	}

	o := options{logger: logger.Nop()}

	for i, opt := range opts {
		if opt == nil {
			continue
		}

		if err := opt(&o); err != nil {
			return nil, fmt.Errorf("failed to apply option at index %d: %w", i, err)
		}
	}

	return &Service[M]{
		transport:  transport,
		dispatcher: dispatcher,
		logger:     o.logger,
	}, nil
}

// Connect opens a connection to address and returns its handle.
//
// Every inbound payload is passed through decoder and dispatched. The notifier
// turns lifecycle changes into messages: one Opened once connected and exactly
// one Closed when the connection ends for any reason, including a failure to
// connect. Connect itself never fails.
//
// The caller owns the returned handle and must Cancel it to close the
// connection; dropping a Live handle leaks the connection.
func (s *Service[M]) Connect(address string, decoder func([]byte) M, notifier func(Status) M) *Handle {
	h := newHandle()
	log := s.logger.With("conn", h.id.String())

	reg := &registration[M]{
		onData:   decoder,
		onStatus: notifier,
		dataTx:   s.dispatcher,
		statusTx: s.dispatcher,
	}

	closeOnce := func() {
		reg.closeOnce.Do(func() {
			reg.releaseData()
			h.release()
			reg.notify(CodeClosed)
			reg.releaseStatus()
			log.Debug("Connection to %s closed", address)
		})
	}

	socket := s.transport.Open(address, Handlers{
		OnOpen: func() {
			log.Debug("Connection to %s opened", address)
			reg.notify(CodeOpened)
		},
		OnMessage: func(payload []byte) {
			if !reg.message(payload) {
				log.Debug("Dropped %d bytes received after close", len(payload))
			}
		},
		OnClose: closeOnce,
		OnError: func(err error) {
			log.Warn("Connection to %s failed: %v", address, err)
			closeOnce()
		},
	})

	h.attach(socket)

	return h
}

// registration holds the callbacks of one connection until its close path
// releases them.
type registration[M any] struct {
	mu       sync.Mutex
	onData   func([]byte) M
	onStatus func(Status) M
	dataTx   Dispatcher[M]
	statusTx Dispatcher[M]

	closeOnce sync.Once
}

// message decodes and dispatches payload. It reports false once the data
// callback has been released.
func (r *registration[M]) message(payload []byte) bool {
	r.mu.Lock()
	decode, tx := r.onData, r.dataTx
	r.mu.Unlock()

	if decode == nil {
		return false
	}

	tx.Dispatch(decode(payload))

	return true
}

// notify dispatches the status for code, panicking on unknown codes.
func (r *registration[M]) notify(code uint32) {
	status := StatusFromCode(code)

	r.mu.Lock()
	notifier, tx := r.onStatus, r.statusTx
	r.mu.Unlock()

	if notifier == nil {
		return
	}

	tx.Dispatch(notifier(status))
}

func (r *registration[M]) releaseData() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.onData = nil
	r.dataTx = nil
}

func (r *registration[M]) releaseStatus() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.onStatus = nil
	r.statusTx = nil
}
