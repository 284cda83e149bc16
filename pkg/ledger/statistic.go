package ledger

import (
	"context"
	"fmt"

	"github.com/AccelByte/accelbyte-go-sdk/services-api/pkg/service/social"
	"github.com/AccelByte/accelbyte-go-sdk/social-sdk/pkg/socialclient/user_statistic"
	"github.com/AccelByte/accelbyte-go-sdk/social-sdk/pkg/socialclientmodels"
)

// DefaultXPStatCode is the AGS statistic that accumulates viewer XP.
const DefaultXPStatCode = "stream-duels-xp"

// StatIncrementer is the slice of the AGS social SDK this ledger needs.
type StatIncrementer interface {
	IncUserStatItemValueShort(input *user_statistic.IncUserStatItemValueParams) (*socialclientmodels.StatItemIncResult, error)
}

var _ StatIncrementer = (*social.UserStatisticService)(nil)

// StatisticLedger records XP as an AccelByte user statistic.
// Viewer ids must be AGS user ids for grants to land.
type StatisticLedger struct {
	statisticsService StatIncrementer
	cfg               StatisticLedgerConfig
}

type StatisticLedgerConfig struct {
	Namespace string
	StatCode  string
}

func NewStatisticLedger(statisticsService StatIncrementer, cfg StatisticLedgerConfig) *StatisticLedger {
	if cfg.StatCode == "" {
		cfg.StatCode = DefaultXPStatCode
	}
	return &StatisticLedger{
		statisticsService: statisticsService,
		cfg:               cfg,
	}
}

func (s *StatisticLedger) Grant(ctx context.Context, actorID string, amount int, reason string, metadata map[string]string) error {
	if amount <= 0 {
		return nil
	}

	input := &user_statistic.IncUserStatItemValueParams{
		Namespace: s.cfg.Namespace,
		UserID:    actorID,
		StatCode:  s.cfg.StatCode,
		Body: &socialclientmodels.StatItemInc{
			Inc: float64(amount),
		},
		Context: ctx,
	}

	_, err := s.statisticsService.IncUserStatItemValueShort(input)
	if err != nil {
		return fmt.Errorf("failed to increment user %s statistic %s for %s: %w", actorID, s.cfg.StatCode, reason, err)
	}

	return nil
}
