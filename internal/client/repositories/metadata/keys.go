package metadata

const (
	// Stage pointer.
	KeySessionID  = "udin_session_id"
	KeyFilesSaved = "udin_files_saved"

	// Checkout bookkeeping, removed after a successful upload run.
	KeyCurrentTransaction = "current_transaction_id"
	KeyPaymentCompleted   = "payment_completed"
	KeyPaymentID          = "payment_id"

	// Secure store.
	KeySecureMasterKey = "secure_master_key"
	KeySecureSalt      = "secure_salt"
	SecurePrefix       = "secure:"
)

// CheckoutKeys are cleared once the staged files reached the backend.
var CheckoutKeys = []string{KeyCurrentTransaction, KeyPaymentCompleted, KeyPaymentID}
