package application

import (
	"context"
	"testing"
	"time"
)

type blockingPool struct {
	tried int
}

func (p *blockingPool) Acquire(ctx context.Context) (func(), bool) {
	select {
	case <-ctx.Done():
		return nil, false
	case <-time.After(5 * time.Second):
		// não deve chegar aqui nos testes
		return nil, false
	}
}

func (p *blockingPool) TryAcquire() (func(), bool) {
	p.tried++
	return nil, false
}

type immediatePool struct {
	acquired int
}

func (p *immediatePool) Acquire(ctx context.Context) (func(), bool) {
	p.acquired++
	return func() {}, true
}

func (p *immediatePool) TryAcquire() (func(), bool) {
	p.acquired++
	return func() {}, true
}

func TestGuardService_Acquire_AllowsWhenNoPool(t *testing.T) {
	svc := GuardService{}
	release, ok := svc.Acquire(context.Background())
	if !ok {
		t.Fatalf("expected ok")
	}
	release()
}

func TestGuardService_Acquire_UsesTimeout(t *testing.T) {
	pool := &blockingPool{}
	svc := GuardService{Pool: pool, AcquireTimeout: 10 * time.Millisecond}

	_, ok := svc.Acquire(context.Background())
	if ok {
		t.Fatalf("expected timeout and ok=false")
	}
	if pool.tried != 0 {
		t.Fatalf("expected blocking Acquire, not TryAcquire")
	}
}

func TestGuardService_Acquire_NoTimeoutDoesNotWait(t *testing.T) {
	pool := &blockingPool{}
	svc := GuardService{Pool: pool}

	start := time.Now()
	_, ok := svc.Acquire(context.Background())
	if ok {
		t.Fatalf("expected ok=false on a busy pool")
	}
	if pool.tried != 1 {
		t.Fatalf("expected TryAcquire to be called once, got %d", pool.tried)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("expected immediate return")
	}
}

func TestGuardService_Acquire_DelegatesToPool(t *testing.T) {
	pool := &immediatePool{}
	svc := GuardService{Pool: pool}

	_, ok := svc.Acquire(context.Background())
	if !ok {
		t.Fatalf("expected ok")
	}
	if pool.acquired != 1 {
		t.Fatalf("expected pool to be called once, got %d", pool.acquired)
	}
}
