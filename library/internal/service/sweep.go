package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-lending/library/internal/errs"
	"github.com/Astemirdum/library-lending/library/internal/model"
	"github.com/Astemirdum/library-lending/library/internal/repository"
	"github.com/Astemirdum/library-lending/pkg/kafka"
)

type SweepResult struct {
	MembersTouched int `json:"members_touched"`
	StatusChanged  int `json:"status_changed"`
}

// Sweep promotes every active loan past its due date to overdue and
// recomputes the status of each member owning one of them. It is idempotent:
// concurrent sweeps race on a conditional update and converge.
func (s *Service) Sweep(ctx context.Context) (SweepResult, error) {
	now := s.clock()
	memberIDs, err := s.repo.MarkOverdue(ctx, now)
	if err != nil {
		return SweepResult{}, errors.Wrap(err, "sweep")
	}

	res := SweepResult{MembersTouched: len(memberIDs)}
	events := make([]kafka.EventLending, 0)
	for _, id := range memberIDs {
		var (
			member  model.Member
			changed bool
		)
		err = s.repo.Atomic(ctx, func(q repository.Querier) error {
			var rerr error
			member, changed, rerr = s.recomputeMemberStatus(ctx, q, id)
			return rerr
		})
		if errors.Is(err, errs.ErrMemberNotFound) {
			continue
		}
		if err != nil {
			return res, errors.Wrapf(err, "sweep: member %d", id)
		}
		if changed {
			res.StatusChanged++
			events = append(events, s.memberEvent(member, now))
		}
	}

	if res.MembersTouched > 0 {
		s.log.Info("overdue sweep",
			zap.Int("members", res.MembersTouched),
			zap.Int("status_changed", res.StatusChanged))
	}
	s.publisher.Publish(ctx, events...)
	return res, nil
}

// RunSweeper sweeps every interval until ctx is done.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
				s.log.Error("periodic sweep", zap.Error(err))
			}
		}
	}
}
