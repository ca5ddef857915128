package services

import (
	"github.com/livefire2015/ez-society/src/store"
)

// Services bundles every service built over one store
type Services struct {
	Society      *SocietyService
	Settings     *SettingsService
	Discount     *DiscountService
	Bill         *BillService
	Payment      *PaymentService
	Ledger       *LedgerService
	Overdue      *OverdueService
	Report       *ReportService
	Transaction  *TransactionService
	Notification *NotificationService
}

// New wires the services over the given store
func New(st store.Store) *Services {
	settings := NewSettingsService(st)
	return &Services{
		Society:      NewSocietyService(st, settings),
		Settings:     settings,
		Discount:     NewDiscountService(st),
		Bill:         NewBillService(st),
		Payment:      NewPaymentService(st),
		Ledger:       NewLedgerService(st),
		Overdue:      NewOverdueService(st),
		Report:       NewReportService(st),
		Transaction:  NewTransactionService(st),
		Notification: NewNotificationService(st),
	}
}
