package receipts

import (
	"context"

	"github.com/MowahidLatif/helping-hands-backend/internal/observability/logger"
	"go.uber.org/zap"
)

// Receipt is the rendered payload handed to the mail transport.
type Receipt struct {
	Recipient   string
	DonationID  string
	CampaignID  string
	AmountCents int64
	Amount      float64
	Currency    string
}

// Sender delivers one receipt. Implementations wrap whatever mail transport
// the deployment uses.
type Sender interface {
	Send(ctx context.Context, receipt Receipt) error
}

// LogSender is the development transport: it only logs, with the recipient
// masked.
type LogSender struct {
	log *zap.Logger
}

func NewLogSender(log *zap.Logger) *LogSender {
	return &LogSender{log: log.Named("receipts.sender")}
}

func (s *LogSender) Send(_ context.Context, receipt Receipt) error {
	s.log.Info("receipt sent",
		zap.String("recipient", logger.MaskEmail(receipt.Recipient)),
		zap.String("donation_id", receipt.DonationID),
		zap.Int64("amount_cents", receipt.AmountCents),
		zap.String("currency", receipt.Currency),
	)
	return nil
}
