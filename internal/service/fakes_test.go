package service

import (
	"context"
	"errors"
	"sync"

	"github.com/example/marketplace/internal/datamodels/listing"
	"github.com/example/marketplace/internal/identity"
)

type fakeIdentity struct {
	names map[string]string
	err   error
	calls int
}

func (f *fakeIdentity) GetUser(ctx context.Context, id string) (*identity.Profile, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	p := &identity.Profile{ID: id}
	if name, ok := f.names[id]; ok {
		p.Username = &name
	}
	return p, nil
}

type publishedEvent struct {
	key     string
	payload any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (f *fakePublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, publishedEvent{key: routingKey, payload: payload})
	return nil
}

var errStoreDown = errors.New("store down")

// brokenRepo 所有方法都返回 errStoreDown，并记录调用次数
type brokenRepo struct {
	calls int
}

func (r *brokenRepo) GetByID(ctx context.Context, id string) (*listing.Listing, error) {
	r.calls++
	return nil, errStoreDown
}

func (r *brokenRepo) ListByUser(ctx context.Context, userID string) ([]*listing.Listing, error) {
	r.calls++
	return nil, errStoreDown
}

func (r *brokenRepo) ListByUserWithMessages(ctx context.Context, userID string) ([]*listing.Listing, error) {
	r.calls++
	return nil, errStoreDown
}

func (r *brokenRepo) ListAll(ctx context.Context) ([]*listing.Listing, error) {
	r.calls++
	return nil, errStoreDown
}

func (r *brokenRepo) Create(ctx context.Context, l *listing.Listing) error {
	r.calls++
	return errStoreDown
}

func (r *brokenRepo) CreateMessage(ctx context.Context, m *listing.Message) error {
	r.calls++
	return errStoreDown
}

func (r *brokenRepo) CountMessages(ctx context.Context) (int64, error) {
	r.calls++
	return 0, errStoreDown
}
