package circuit_breaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

var errService = errors.New("service error")

func okService() error   { return nil }
func failService() error { return errService }

func Test_circuitBreaker_Call(t *testing.T) {
	t.Parallel()
	cfg := Config{
		RecordLength:     4,
		Timeout:          10 * time.Second,
		Percentile:       0.5,
		RecoveryRequests: 2,
	}

	tests := []struct {
		name string
		run  func(t *testing.T, cb *circuitBreaker, clock *fakeClock)
	}{
		{
			name: "stays closed below percentile",
			run: func(t *testing.T, cb *circuitBreaker, _ *fakeClock) {
				require.NoError(t, cb.Call(okService))
				require.NoError(t, cb.Call(okService))
				require.ErrorIs(t, cb.Call(failService), errService)
				require.Equal(t, Closed, cb.State())
			},
		},
		{
			name: "opens at percentile and short-circuits",
			run: func(t *testing.T, cb *circuitBreaker, _ *fakeClock) {
				require.ErrorIs(t, cb.Call(failService), errService)
				require.ErrorIs(t, cb.Call(failService), errService)
				require.Equal(t, Open, cb.State())

				called := false
				err := cb.Call(func() error {
					called = true
					return nil
				})
				require.ErrorIs(t, err, ErrOpenCB)
				require.False(t, called)
			},
		},
		{
			name: "half-open recovers after enough successes",
			run: func(t *testing.T, cb *circuitBreaker, clock *fakeClock) {
				_ = cb.Call(failService)
				_ = cb.Call(failService)
				require.Equal(t, Open, cb.State())

				clock.advance(11 * time.Second)
				require.NoError(t, cb.Call(okService))
				require.Equal(t, HalfOpen, cb.State())
				require.NoError(t, cb.Call(okService))
				require.Equal(t, Closed, cb.State())
			},
		},
		{
			name: "half-open failure reopens",
			run: func(t *testing.T, cb *circuitBreaker, clock *fakeClock) {
				_ = cb.Call(failService)
				_ = cb.Call(failService)

				clock.advance(11 * time.Second)
				require.ErrorIs(t, cb.Call(failService), errService)
				require.Equal(t, Open, cb.State())
				require.ErrorIs(t, cb.Call(okService), ErrOpenCB)
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
			cb := newWithClock(cfg, clock.now)
			tt.run(t, cb, clock)
		})
	}
}
