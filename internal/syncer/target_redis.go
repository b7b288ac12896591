package syncer

import (
	"context"
	"fmt"
	"strconv"

	platformredis "noticeflow/internal/platform/redis"
)

// RedisTarget writes the derived field set as a hash per notice. The internet
// frontend serves notice status reads straight from these hashes. Apply is
// idempotent: re-pushing the same notice overwrites the same keys.
type RedisTarget struct {
	client *platformredis.Client
}

func NewRedisTarget(client *platformredis.Client) *RedisTarget {
	return &RedisTarget{client: client}
}

func noticeKey(no string) string {
	return "notice:" + no
}

func (t *RedisTarget) Apply(ctx context.Context, fields DerivedFields) error {
	key := noticeKey(fields.NoticeNo.String())
	err := t.client.HSet(ctx, key,
		"last_stage", fields.LastProcessingStage.String(),
		"next_stage", fields.NextProcessingStage.String(),
		"amount_payable", fields.AmountPayable,
		"suspension_type", string(fields.SuspensionType),
		"epr_reason", fields.EPRReason,
		"crs_reason", fields.CRSReason,
		"due_date_of_revival", fields.DueDateOfRevival,
		"message_code", fields.MessageCode,
		"payment_accepted", strconv.FormatBool(fields.PaymentAccepted),
	).Err()
	if err != nil {
		return fmt.Errorf("replica hset %s: %w", key, err)
	}
	return nil
}
