package workers

import (
	"context"
	"fmt"
	"time"

	"snackbox/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gorm.io/gorm"
)

// debtor is one row of the reminder query.
type debtor struct {
	UserID uint
	Name   string
	Email  string
	Debt   decimal.Decimal
}

// ReminderWorker periodically mails users whose tab exceeds the configured
// threshold.
type ReminderWorker struct {
	DB        *gorm.DB
	Mailer    *utils.Mailer
	Threshold decimal.Decimal

	// lastMailed throttles reminders to one per user per interval window.
	lastMailed map[uint]time.Time
}

func NewReminderWorker(db *gorm.DB, mailer *utils.Mailer, threshold decimal.Decimal) *ReminderWorker {
	return &ReminderWorker{
		DB:         db,
		Mailer:     mailer,
		Threshold:  threshold,
		lastMailed: make(map[uint]time.Time),
	}
}

// Poll runs the reminder check on a fixed interval until ctx is cancelled.
func (w *ReminderWorker) Poll(ctx context.Context, interval time.Duration) {
	log := utils.GetLogger()
	log.Info("debt reminder worker started",
		zap.String("threshold", w.Threshold.String()),
		zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("debt reminder worker stopped")
			return
		case <-ticker.C:
			if err := w.runOnce(ctx); err != nil {
				log.Error("debt reminder run failed", zap.Error(err))
			}
		}
	}
}

// Reminders repeat no more often than weekly per user.
const remindEvery = 7 * 24 * time.Hour

func (w *ReminderWorker) runOnce(ctx context.Context) error {
	var debtors []debtor
	err := w.DB.WithContext(ctx).Raw(
		`SELECT users.id AS user_id, users.name, users.email,
		        COALESCE(scanned.total, 0) - COALESCE(paid.total, 0) AS debt
		   FROM users
		   LEFT JOIN (SELECT purchases.user_id, SUM(scans.amount) AS total
		                FROM scans JOIN purchases ON purchases.id = scans.purchase_id
		               GROUP BY purchases.user_id) scanned ON scanned.user_id = users.id
		   LEFT JOIN (SELECT user_id, SUM(amount) AS total
		                FROM payments GROUP BY user_id) paid ON paid.user_id = users.id
		  WHERE COALESCE(scanned.total, 0) - COALESCE(paid.total, 0) >= ?`,
		w.Threshold).Scan(&debtors).Error
	if err != nil {
		return fmt.Errorf("failed to query debtors: %w", err)
	}

	log := utils.GetLogger()
	now := time.Now()
	for _, d := range debtors {
		if last, ok := w.lastMailed[d.UserID]; ok && now.Sub(last) < remindEvery {
			continue
		}
		if err := w.sendReminder(d); err != nil {
			log.Error("failed to send debt reminder",
				zap.Uint("user_id", d.UserID), zap.Error(err))
			continue
		}
		w.lastMailed[d.UserID] = now
		utils.RemindersSentTotal.Inc()
		log.Info("debt reminder sent",
			zap.Uint("user_id", d.UserID), zap.String("debt", d.Debt.String()))
	}
	return nil
}

func (w *ReminderWorker) sendReminder(d debtor) error {
	p := message.NewPrinter(language.German)
	amount := p.Sprintf("%.2f €", d.Debt.InexactFloat64())

	body := fmt.Sprintf(`
		<html><body>
		<p>Hi %s,</p>
		<p>your snack box tab currently stands at <strong>%s</strong>.
		Please top up your balance at the next opportunity.</p>
		<p>Thanks for keeping the box honest!</p>
		</body></html>`, d.Name, amount)

	return w.Mailer.Send(d.Email, d.Name, "Your snack box tab needs a top-up", body)
}
