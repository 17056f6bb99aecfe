// Package native implements an execution service for handlers written in Go
// and packaged with the application.
//
// Decoded payloads are memoized in a bounded cache keyed by the digest of the
// transaction, so that the signers resolution and the execution of the same
// transaction only decode it once.
//
// Documentation Last Review: 14.10.2026
//
package native

import (
	"crypto/sha256"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.dedis.ch/delay/core/execution"
	"go.dedis.ch/delay/core/store"
	"golang.org/x/xerrors"
)

// DefaultCacheSize is the number of decoded payloads kept in memory.
const DefaultCacheSize = 1024

type digest [sha256.Size]byte

// Registry is an execution service for packaged handlers. Those handlers have
// complete access to the snapshot and can directly update it.
//
// - implements execution.Service
type Registry struct {
	handlers  map[string]execution.Handler
	whitelist map[string]struct{}
	cache     *lru.Cache[digest, execution.Payload]
}

type registryTemplate struct {
	whitelist []string
	allowAll  bool
	cacheSize int
}

// RegistryOption is the type of option to create a registry.
type RegistryOption func(*registryTemplate)

// WithWhitelist sets the kinds that the registry accepts. Without this option
// every registered kind is accepted.
func WithWhitelist(kinds ...string) RegistryOption {
	return func(tmpl *registryTemplate) {
		tmpl.whitelist = kinds
		tmpl.allowAll = false
	}
}

// WithCacheSize sets the number of decoded payloads kept in memory.
func WithCacheSize(size int) RegistryOption {
	return func(tmpl *registryTemplate) {
		tmpl.cacheSize = size
	}
}

// NewRegistry returns a new empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	tmpl := registryTemplate{
		allowAll:  true,
		cacheSize: DefaultCacheSize,
	}

	for _, opt := range opts {
		opt(&tmpl)
	}

	var whitelist map[string]struct{}
	if !tmpl.allowAll {
		whitelist = make(map[string]struct{}, len(tmpl.whitelist))
		for _, kind := range tmpl.whitelist {
			whitelist[kind] = struct{}{}
		}
	}

	if tmpl.cacheSize <= 0 {
		tmpl.cacheSize = DefaultCacheSize
	}

	// The error is only returned for a non-positive size.
	cache, _ := lru.New[digest, execution.Payload](tmpl.cacheSize)

	return &Registry{
		handlers:  map[string]execution.Handler{},
		whitelist: whitelist,
		cache:     cache,
	}
}

// Set stores the handler using the kind as the key. It panics if the kind is
// already registered.
func (r *Registry) Set(kind string, handler execution.Handler) {
	if kind == "" {
		panic(xerrors.New("empty transaction kind"))
	}

	if _, ok := r.handlers[kind]; ok {
		panic(xerrors.Errorf("handler '%s' already registered", kind))
	}

	r.handlers[kind] = handler
}

// Len returns the number of registered handlers.
func (r *Registry) Len() int {
	return len(r.handlers)
}

// Supports implements execution.Service. It returns true if the kind is
// whitelisted and registered.
func (r *Registry) Supports(kind string) bool {
	if r.whitelist != nil {
		_, ok := r.whitelist[kind]
		if !ok {
			return false
		}
	}

	_, ok := r.handlers[kind]

	return ok
}

// Signers implements execution.Service. It decodes the body and returns the
// accounts that the handler requires.
func (r *Registry) Signers(kind string, body []byte) ([]string, error) {
	handler, payload, err := r.decode(kind, body)
	if err != nil {
		return nil, err
	}

	return handler.Signers(payload), nil
}

// Execute implements execution.Service. It decodes the body and applies the
// payload with the handler of the kind, whether it is whitelisted or not.
func (r *Registry) Execute(snap store.Snapshot, payer, kind string,
	body []byte) (execution.Result, error) {

	handler, payload, err := r.decode(kind, body)
	if err != nil {
		return execution.Result{}, err
	}

	res, err := handler.Execute(snap, payer, payload)
	if err != nil {
		return execution.Result{}, xerrors.Errorf("handler '%s' failed: %v", kind, err)
	}

	return res, nil
}

func (r *Registry) decode(kind string, body []byte) (execution.Handler, execution.Payload, error) {
	// The whitelist only applies to new schedules, so it is not checked here.
	handler, ok := r.handlers[kind]
	if !ok {
		return nil, nil, xerrors.Errorf("%w '%s'", execution.ErrUnknownKind, kind)
	}

	key := hashOf(kind, body)

	payload, found := r.cache.Get(key)
	if found {
		return handler, payload, nil
	}

	payload, err := handler.Decode(body)
	if err != nil {
		return nil, nil, xerrors.Errorf("failed to decode '%s': %v", kind, err)
	}

	r.cache.Add(key, payload)

	return handler, payload, nil
}

func hashOf(kind string, body []byte) digest {
	h := sha256.New()
	h.Write([]byte(kind))
	h.Write([]byte{0})
	h.Write(body)

	var d digest
	copy(d[:], h.Sum(nil))

	return d
}
