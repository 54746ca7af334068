package dto

// RecordPaymentRequest appends an entry to a student's ledger.
type RecordPaymentRequest struct {
	Amount     int64  `json:"montant" validate:"required,gt=0"`
	Mode       string `json:"mode" validate:"omitempty,max=30"`
	ReceivedBy string `json:"recu_par" validate:"omitempty,max=80"`
}
