package uci

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"
)

type PoolConfig struct {
	BinaryPath string
	Capacity   int
	Options    Options
}

// Pool keeps up to Capacity engine processes and hands them out one at a time.
type Pool struct {
	binaryPath string
	opt        Options
	capacity   int

	mu     sync.Mutex
	total  int
	closed bool
	idle   chan *Session
}

var (
	errAtCapacity = errors.New("engine pool at capacity")
	ErrPoolClosed = errors.New("engine pool closed")
)

func NewPool(cfg PoolConfig) (*Pool, error) {
	if cfg.BinaryPath == "" {
		return nil, fmt.Errorf("binary path required")
	}
	if _, err := os.Stat(cfg.BinaryPath); err != nil {
		return nil, fmt.Errorf("stockfish binary check: %w", err)
	}
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = defaultCapacity()
	}
	return &Pool{
		binaryPath: cfg.BinaryPath,
		opt:        cfg.Options,
		capacity:   capacity,
		idle:       make(chan *Session, capacity),
	}, nil
}

func (p *Pool) Acquire(ctx context.Context) (*Session, error) {
	for {
		select {
		case s := <-p.idle:
			if err := s.EnsureReady(ctx); err != nil {
				p.discard(s)
				continue
			}
			return s, nil
		default:
		}

		s, err := p.create(ctx)
		if err == nil {
			return s, nil
		}
		if !errors.Is(err, errAtCapacity) {
			return nil, err
		}

		select {
		case s := <-p.idle:
			if err := s.EnsureReady(ctx); err != nil {
				p.discard(s)
				continue
			}
			return s, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Release returns s to the pool, or closes it when the search failed.
func (p *Pool) Release(s *Session, err error) {
	if s == nil {
		return
	}
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if err != nil || closed {
		p.discard(s)
		return
	}
	select {
	case p.idle <- s:
	default:
		p.discard(s)
	}
}

func (p *Pool) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	var errs []error
	for {
		select {
		case s := <-p.idle:
			if err := s.Close(); err != nil {
				errs = append(errs, err)
			}
			p.decrement()
		default:
			return errors.Join(errs...)
		}
	}
}

func (p *Pool) create(ctx context.Context) (*Session, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	if p.total >= p.capacity {
		p.mu.Unlock()
		return nil, errAtCapacity
	}
	p.total++
	p.mu.Unlock()

	s, err := NewSession(ctx, p.binaryPath, p.opt)
	if err != nil {
		p.decrement()
		return nil, err
	}
	return s, nil
}

func (p *Pool) discard(s *Session) {
	_ = s.Close()
	p.decrement()
}

func (p *Pool) decrement() {
	p.mu.Lock()
	if p.total > 0 {
		p.total--
	}
	p.mu.Unlock()
}

func defaultCapacity() int {
	cpu := runtime.NumCPU()
	if cpu < 2 {
		return 2
	}
	if cpu > 4 {
		return 4
	}
	return cpu
}
