package settlement

import (
	"time"

	"github.com/vitwit/paylink/types"
)

// State is a step of the settlement state machine.
type State string

const (
	StateValidating                   State = "validating"
	StateResolvingToken               State = "resolving_token"
	StateConnecting                   State = "connecting"
	StateSwitchingChain               State = "switching_chain"
	StateAwaitingDecimals             State = "awaiting_decimals"
	StateSendingMerchantTransfer      State = "sending_merchant_transfer"
	StateAwaitingMerchantConfirmation State = "awaiting_merchant_confirmation"
	StateSendingFeeTransfer           State = "sending_fee_transfer"
	StateAwaitingFeeConfirmation      State = "awaiting_fee_confirmation"
	StateReconciled                   State = "reconciled"
	StateFailed                       State = "failed"
)

// Event is emitted on every transition.
type Event struct {
	State   State
	Message string
	TxHash  string
	Err     error
	At      time.Time
}

// Observer receives transition events synchronously on the settling goroutine.
type Observer func(Event)

func progressMessage(s State, chainName string, legs int) string {
	switch s {
	case StateValidating:
		return "Checking payment link…"
	case StateConnecting:
		return "Connecting wallet…"
	case StateSwitchingChain:
		return "Switching network to " + chainName + "…"
	case StateAwaitingDecimals:
		return "Reading token precision…"
	case StateSendingMerchantTransfer:
		if legs > 1 {
			return "Confirm 2 transactions: merchant payment + treasury fee."
		}
		return "Confirm the merchant payment in your wallet."
	case StateAwaitingMerchantConfirmation:
		return "Merchant tx sent. Waiting confirmation…"
	case StateSendingFeeTransfer:
		return "Confirm the treasury fee in your wallet."
	case StateAwaitingFeeConfirmation:
		return "Fee tx sent. Waiting confirmation…"
	case StateReconciled:
		return types.StatusMessage(nil)
	default:
		return ""
	}
}
