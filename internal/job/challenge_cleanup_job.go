package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mcourse/internal/metrics"
)

type ChallengeStore interface {
	ClearExpiredChallenges(ctx context.Context, before int64) (int64, error)
}

// ChallengeCleanupJob drops the code hash of OTP challenges whose expiry has passed. The
// verification token stays, so a late verify still reports the challenge as expired.
type ChallengeCleanupJob struct {
	store ChallengeStore
	grace time.Duration
	now   func() time.Time
}

func NewChallengeCleanupJob(store ChallengeStore, grace time.Duration) *ChallengeCleanupJob {
	return &ChallengeCleanupJob{store: store, grace: grace, now: time.Now}
}

func (j *ChallengeCleanupJob) Name() string {
	return "otp_challenge_cleanup"
}

func (j *ChallengeCleanupJob) Run(ctx context.Context) error {
	if j.store == nil {
		return nil
	}
	cutoff := j.now().Add(-j.grace).Unix()
	cleared, err := j.store.ClearExpiredChallenges(ctx, cutoff)
	if err != nil {
		return err
	}
	if cleared > 0 {
		metrics.ExpiredChallengesClearedTotal.Add(float64(cleared))
		logutil.GetLogger(ctx).Info("expired otp challenges cleared", zap.Int64("count", cleared))
	}
	return nil
}
