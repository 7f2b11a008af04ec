package telegram

import (
	"context"
	"fmt"
	"strings"

	"financial_digest/internal/app"
	"financial_digest/internal/domain/digest"
	"financial_digest/internal/domain/notification"
)

// UrgentNotifier tells advisors on Telegram that their e-mailed digest has
// urgent items. The message carries counts only.
type UrgentNotifier struct {
	client MessageSender
}

func NewUrgentNotifier(client MessageSender) *UrgentNotifier {
	return &UrgentNotifier{client: client}
}

var _ app.UrgentNotifier = (*UrgentNotifier)(nil)

func (n *UrgentNotifier) NotifyUrgent(ctx context.Context, chatID int64, d *digest.Digest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := n.client.SendMessage(chatID, FormatUrgentNotice(d), nil); err != nil {
		return fmt.Errorf("failed to send urgent notice to chat %d: %w", chatID, err)
	}
	return nil
}

// FormatUrgentNotice lists the urgent items of a digest per kind and tier.
func FormatUrgentNotice(d *digest.Digest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Your financial digest for %s needs attention:\n", digest.DateKey(d.Date))
	for _, k := range notification.Kinds {
		stats := d.SummaryStats.For(k)
		for _, tier := range notification.Tiers {
			if !tier.IsUrgent() || stats.ByTier[tier] == 0 {
				continue
			}
			fmt.Fprintf(&b, "%s: %d %s\n", tier.Label(), stats.ByTier[tier], k.Label())
		}
	}
	b.WriteString("Details are in the e-mail sent to you.")
	return b.String()
}
