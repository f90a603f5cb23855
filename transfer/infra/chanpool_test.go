package infra

import (
	"context"
	"testing"
	"time"
)

func TestChanPool_TryAcquireFailsWhenFull(t *testing.T) {
	p := NewChanPool(1)

	release, ok := p.TryAcquire()
	if !ok {
		t.Fatalf("expected first TryAcquire to succeed")
	}
	if _, ok := p.TryAcquire(); ok {
		t.Fatalf("expected second TryAcquire to fail while slot is held")
	}

	release()
	release() // segunda chamada não pode liberar vaga de outro

	r2, ok := p.TryAcquire()
	if !ok {
		t.Fatalf("expected TryAcquire to succeed after release")
	}
	if _, ok := p.TryAcquire(); ok {
		t.Fatalf("double release must not free an extra slot")
	}
	r2()
}

func TestChanPool_AcquireHonoursContext(t *testing.T) {
	p := NewChanPool(1)
	release, _ := p.TryAcquire()
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, ok := p.Acquire(ctx); ok {
		t.Fatalf("expected Acquire to give up when ctx ends")
	}
}
