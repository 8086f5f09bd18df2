package session

import (
	"context"
	"sync"
)

// LazySource defers building its Source until the first session is needed, so
// that commands which never reach the network do not require the captcha
// tooling to be installed. A failed build is retried on the next Acquire.
type LazySource struct {
	build func() (Source, error)

	lock   sync.Mutex
	source Source
}

func NewLazySource(build func() (Source, error)) *LazySource {
	return &LazySource{build: build}
}

func (l *LazySource) Acquire(ctx context.Context) (*Session, error) {
	source, err := l.get()
	if err != nil {
		return nil, err
	}
	return source.Acquire(ctx)
}

func (l *LazySource) get() (Source, error) {
	l.lock.Lock()
	defer l.lock.Unlock()

	if l.source != nil {
		return l.source, nil
	}
	source, err := l.build()
	if err != nil {
		return nil, err
	}
	l.source = source
	return source, nil
}
