package utils

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ScansTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snackbox_scans_total",
		Help: "Total number of product scans registered",
	})

	PurchasesCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snackbox_purchases_completed_total",
		Help: "Total number of purchases completed",
	})

	PaymentsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snackbox_payments_total",
		Help: "Total number of top-up payments recorded",
	})

	AchievementsAwardedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snackbox_achievements_awarded_total",
		Help: "Total number of achievements awarded",
	}, []string{"category"})

	StockMovementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snackbox_stock_movements_total",
		Help: "Total number of shelving movements recorded",
	}, []string{"type"})

	BackupRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snackbox_backup_runs_total",
		Help: "Total number of database backup runs",
	}, []string{"status"})

	RemindersSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snackbox_debt_reminders_sent_total",
		Help: "Total number of debt reminder emails sent",
	})
)
