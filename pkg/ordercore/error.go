package ordercore

// Rejection reasons surfaced in results; all are display-ready text.
const (
	reasonKillSwitch      = "Kill switch active, only kill-switch orders accepted"
	reasonDuplicate       = "Duplicate request within dedup window"
	reasonOrderNotFound   = "order not found"
	reasonNotModifiable   = "order is not in a modifiable state"
	reasonAmendInProgress = "amendment already in progress"
	reasonEmptyAmendment  = "modification must set at least one of price, quantity, trigger price"
	reasonBadPrice        = "price must be positive"
	reasonBadTrigger      = "trigger price must be positive"
	reasonBadQuantity     = "quantity must be positive"
	reasonQtyBelowFilled  = "quantity cannot be below already-filled quantity"
	reasonNoLegs          = "operation has no legs"
)
