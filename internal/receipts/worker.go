package receipts

import (
	"context"
	"errors"
	"time"

	donationdomain "github.com/MowahidLatif/helping-hands-backend/internal/donation/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Sender Sender
	Config Config `optional:"true"`
}

type Worker struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	sender Sender
	cfg    Config
}

func NewWorker(p Params) *Worker {
	cfg := p.Config.withDefaults()
	return &Worker{
		db:     p.DB,
		log:    p.Log.Named("receipts.worker"),
		genID:  p.GenID,
		sender: p.Sender,
		cfg:    cfg,
	}
}

func (w *Worker) RunForever(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if _, err := w.RunOnce(); err != nil {
			w.log.Warn("receipt run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *Worker) RunOnce() (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return w.processBatch(ctx, w.cfg.BatchSize)
}

type candidate struct {
	ID          snowflake.ID
	OrgID       snowflake.ID
	CampaignID  snowflake.ID
	AmountCents int64
	Currency    string
	DonorEmail  string
}

// processBatch claims unreceipted succeeded donations and sends their
// receipts. Claiming is the insert itself: the unique donation_id makes
// concurrent workers race safely, the loser just skips the row. Sends happen
// after the claim transaction commits so a slow mail host never pins locks.
func (w *Worker) processBatch(ctx context.Context, limit int) (int, error) {
	if w.db == nil || w.sender == nil || w.genID == nil {
		return 0, errors.New("receipt_worker_unavailable")
	}
	if limit <= 0 {
		limit = w.cfg.BatchSize
	}

	type claimed struct {
		receiptID snowflake.ID
		row       candidate
	}

	var claims []claimed
	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := `SELECT d.id, d.org_id, d.campaign_id, d.amount_cents, d.currency, d.donor_email
			 FROM donations d
			 WHERE d.status = ?
			   AND d.donor_email IS NOT NULL
			   AND NOT EXISTS (
			       SELECT 1 FROM email_receipts r WHERE r.donation_id = d.id
			   )
			 ORDER BY d.id
			 LIMIT ?`
		if tx.Dialector.Name() == "postgres" {
			query += ` FOR UPDATE OF d SKIP LOCKED`
		}

		var rows []candidate
		if err := tx.WithContext(ctx).Raw(query, donationdomain.StatusSucceeded, limit).Scan(&rows).Error; err != nil {
			return err
		}

		now := time.Now().UTC()
		for _, row := range rows {
			receiptID := w.genID.Generate()
			result := tx.WithContext(ctx).Exec(
				`INSERT INTO email_receipts (id, donation_id, org_id, recipient, status, created_at)
				 VALUES (?, ?, ?, ?, ?, ?)
				 ON CONFLICT (donation_id) DO NOTHING`,
				receiptID,
				row.ID,
				row.OrgID,
				row.DonorEmail,
				ReceiptStatusPending,
				now,
			)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				continue
			}
			claims = append(claims, claimed{receiptID: receiptID, row: row})
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, claim := range claims {
		receipt := Receipt{
			Recipient:   claim.row.DonorEmail,
			DonationID:  claim.row.ID.String(),
			CampaignID:  claim.row.CampaignID.String(),
			AmountCents: claim.row.AmountCents,
			Amount:      float64(claim.row.AmountCents) / 100.0,
			Currency:    claim.row.Currency,
		}
		status := ReceiptStatusSent
		if err := w.sender.Send(ctx, receipt); err != nil {
			w.log.Warn("receipt send failed",
				zap.String("donation_id", claim.row.ID.String()),
				zap.Error(err),
			)
			status = ReceiptStatusFailed
		}
		if err := w.markReceipt(ctx, claim.receiptID, status); err != nil {
			return sent, err
		}
		if status == ReceiptStatusSent {
			sent++
		}
	}
	return sent, nil
}

func (w *Worker) markReceipt(ctx context.Context, receiptID snowflake.ID, status ReceiptStatus) error {
	now := time.Now().UTC()
	var sentAt *time.Time
	if status == ReceiptStatusSent {
		sentAt = &now
	}
	return w.db.WithContext(ctx).Exec(
		`UPDATE email_receipts SET status = ?, sent_at = ? WHERE id = ?`,
		status,
		sentAt,
		receiptID,
	).Error
}
