package order

import (
	"context"
	"strconv"
	"sync"

	"github.com/go-faster/errors"
)

// --- Fakes ---

type fakeGateway struct {
	mu sync.Mutex

	auth       *AuthorizationResult
	authErr    error
	capture    *CaptureResult
	captureErr error
	// wait makes calls block until their context is done.
	wait bool

	authCalls    int
	captureCalls int
	lastCart     Cart
	lastCapture  string
	ctxErrOnCall error
}

func (g *fakeGateway) CreateAuthorization(ctx context.Context, cart Cart) (*AuthorizationResult, error) {
	g.mu.Lock()
	g.authCalls++
	g.lastCart = cart
	g.ctxErrOnCall = ctx.Err()
	g.mu.Unlock()

	if g.wait {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return g.auth, g.authErr
}

func (g *fakeGateway) CaptureAuthorization(ctx context.Context, externalID string) (*CaptureResult, error) {
	g.mu.Lock()
	g.captureCalls++
	g.lastCapture = externalID
	g.mu.Unlock()

	if g.wait {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return g.capture, g.captureErr
}

type memRepo struct {
	mu     sync.Mutex
	seq    int
	orders map[string]Order

	createErr error
	listErr   error
}

func newMemRepo() *memRepo {
	return &memRepo{orders: make(map[string]Order)}
}

func (r *memRepo) Create(_ context.Context, o *Order) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return "", r.createErr
	}
	r.seq++
	id := "ord-" + strconv.Itoa(r.seq)
	stored := *o
	stored.ID = id
	r.orders[id] = stored
	return id, nil
}

func (r *memRepo) Get(_ context.Context, id string) (*Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &o, nil
}

func (r *memRepo) List(_ context.Context) ([]Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]Order, 0, len(r.orders))
	for _, o := range r.orders {
		out = append(out, o)
	}
	return out, nil
}

func (r *memRepo) UpdateStatus(_ context.Context, id string, status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return errors.Wrapf(ErrNotFound, "update %s", id)
	}
	o.Status = status
	r.orders[id] = o
	return nil
}

func (r *memRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[id]; !ok {
		return ErrNotFound
	}
	delete(r.orders, id)
	return nil
}

func (r *memRepo) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orders)
}

type fakeNotifier struct {
	mu    sync.Mutex
	sent  []Summary
	err   error
	calls int
}

func (n *fakeNotifier) Notify(_ context.Context, s Summary) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, s)
	return nil
}
