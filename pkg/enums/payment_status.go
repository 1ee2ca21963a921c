package enums

// PaymentStatus is the ledger state of a settled checkout.
type PaymentStatus string

const PaymentStatusCompleted PaymentStatus = "completed"

func (p PaymentStatus) String() string {
	return string(p)
}
