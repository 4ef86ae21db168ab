// Package keylock serializes work per string key, so that read-modify-write
// sequences against the same cart or user never interleave.
package keylock

import "sync"

type KeyLock struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New() *KeyLock {
	return &KeyLock{locks: make(map[string]*sync.Mutex)}
}

func (kl *KeyLock) Lock(key string) {
	kl.mu.Lock()
	m, ok := kl.locks[key]
	if !ok {
		m = &sync.Mutex{}
		kl.locks[key] = m
	}
	kl.mu.Unlock()
	m.Lock()
}

func (kl *KeyLock) Unlock(key string) {
	kl.mu.Lock()
	m := kl.locks[key]
	kl.mu.Unlock()
	if m != nil {
		m.Unlock()
	}
}

// Do runs fn while holding the key's lock.
func (kl *KeyLock) Do(key string, fn func() error) error {
	kl.Lock(key)
	defer kl.Unlock(key)
	return fn()
}
