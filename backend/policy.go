package backend

import (
	"math/rand"
	"sync"
	"time"
)

const (
	DefaultMinDelay    = 200 * time.Millisecond
	DefaultMaxDelay    = 700 * time.Millisecond
	DefaultFailureRate = 0.05
)

// Policy decides how long each simulated call takes and whether it fails
type Policy interface {
	Delay() time.Duration
	Fail() bool
}

// RandomPolicy draws a uniform delay from [MinDelay, MaxDelay] and fails
// with probability FailureRate, independently per call
type RandomPolicy struct {
	minDelay    time.Duration
	maxDelay    time.Duration
	failureRate float64
	mutex       sync.Mutex
	rnd         *rand.Rand
}

func NewRandomPolicy(minDelay, maxDelay time.Duration, failureRate float64, seed int64) *RandomPolicy {
	if minDelay < 0 {
		minDelay = 0
	}
	if maxDelay < 0 {
		maxDelay = 0
	}
	if minDelay > maxDelay {
		minDelay, maxDelay = maxDelay, minDelay
	}
	if failureRate < 0 {
		failureRate = 0
	}
	if failureRate > 1 {
		failureRate = 1
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandomPolicy{
		minDelay:    minDelay,
		maxDelay:    maxDelay,
		failureRate: failureRate,
		rnd:         rand.New(rand.NewSource(seed)),
	}
}

func DefaultPolicy() *RandomPolicy {
	return NewRandomPolicy(DefaultMinDelay, DefaultMaxDelay, DefaultFailureRate, 0)
}

// Instant never delays and never fails
func Instant() Policy {
	return NewRandomPolicy(0, 0, 0, 1)
}

// AlwaysFail never delays and fails every call
func AlwaysFail() Policy {
	return NewRandomPolicy(0, 0, 1, 1)
}

func (p *RandomPolicy) Delay() time.Duration {
	span := int64(p.maxDelay - p.minDelay)
	if span == 0 {
		return p.minDelay
	}
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.minDelay + time.Duration(p.rnd.Int63n(span+1))
}

func (p *RandomPolicy) Fail() bool {
	switch p.failureRate {
	case 0:
		return false
	case 1:
		return true
	}
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.rnd.Float64() < p.failureRate
}

func (p *RandomPolicy) MinDelay() time.Duration {
	return p.minDelay
}

func (p *RandomPolicy) MaxDelay() time.Duration {
	return p.maxDelay
}

func (p *RandomPolicy) FailureRate() float64 {
	return p.failureRate
}
