package realtime

import (
	"context"
	"errors"
	"time"

	"github.com/MowahidLatif/helping-hands-backend/internal/observability/metrics"
	"go.uber.org/zap"
)

var ErrHubClosed = errors.New("realtime_hub_closed")

// Notifier pushes settled-donation deltas to live subscribers. Delivery is
// best effort: callers treat errors as advisory and never roll back ledger
// state over them.
type Notifier interface {
	NotifyDonation(ctx context.Context, delta DonationDelta) error
}

type hubNotifier struct {
	hub     *Hub
	log     *zap.Logger
	metrics *metrics.PipelineMetrics
	timeout time.Duration
}

func NewNotifier(hub *Hub, log *zap.Logger, m *metrics.PipelineMetrics, timeout time.Duration) Notifier {
	return &hubNotifier{
		hub:     hub,
		log:     log.Named("realtime.notifier"),
		metrics: m,
		timeout: timeout,
	}
}

func (n *hubNotifier) NotifyDonation(ctx context.Context, delta DonationDelta) error {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	env := &Envelope{
		Type:       TypeDonationReceived,
		CampaignID: delta.CampaignID,
		Data:       delta,
	}
	if err := n.hub.Publish(ctx, delta.CampaignID, env); err != nil {
		n.metrics.IncNotifyDropped()
		n.log.Warn("donation delta dropped",
			zap.String("campaign_id", delta.CampaignID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// NopNotifier discards every delta. Used where no hub is wired, e.g. one-shot
// maintenance commands.
type NopNotifier struct{}

func (NopNotifier) NotifyDonation(context.Context, DonationDelta) error { return nil }
