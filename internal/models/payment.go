package models

import "time"

// Payment is one immutable entry in a student's ledger.
type Payment struct {
	Date       time.Time `yaml:"date" json:"date"`
	Amount     int64     `yaml:"montant" json:"montant"`
	Mode       string    `yaml:"mode,omitempty" json:"mode,omitempty"`
	ReceivedBy string    `yaml:"recu_par,omitempty" json:"recu_par,omitempty"`
}

// Balance is derived from the tuition fee and the ledger; it is never persisted.
type Balance struct {
	Total     int64 `json:"total"`
	Paid      int64 `json:"paye"`
	Remaining int64 `json:"reste"`
}

// PaymentReceipt is returned after a payment is recorded.
type PaymentReceipt struct {
	StudentID string  `json:"student_id"`
	Index     int     `json:"index"`
	Payment   Payment `json:"paiement"`
	Balance   Balance `json:"solde"`
}

// PaymentNotice is handed to the notification sink after a successful payment.
type PaymentNotice struct {
	StudentID   string
	StudentName string
	Phone       string
	Amount      int64
	Remaining   int64
	PaidAt      time.Time
}
