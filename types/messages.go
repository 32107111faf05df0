package types

import "errors"

// NoWalletHint is shown whenever no wallet provider is available.
const NoWalletHint = "No wallet found. Open this link inside a wallet-enabled browser " +
	"(MetaMask, Trust Wallet, Coinbase Wallet) or scan the QR code with your wallet app."

// StatusMessage renders a human-readable status line for a terminal failure.
// Every code maps to a distinct message.
func StatusMessage(err error) string {
	if err == nil {
		return "Paid ✅"
	}

	var ce *CheckoutError
	if !errors.As(err, &ce) {
		return "Payment failed: " + err.Error()
	}

	switch ce.Code {
	case ErrInvalidDescriptor:
		return "This payment link is invalid: " + ce.Message
	case ErrExpired:
		return "This payment link expired."
	case ErrTokenUnavailable:
		return ce.Message
	case ErrNoProvider:
		return NoWalletHint
	case ErrWalletUnavailable:
		return "Could not reach your wallet: " + ce.Message + ". Check the wallet and try again."
	case ErrNotConnected:
		return "Connect your wallet first."
	case ErrChainSwitchRejected:
		return "Network switch was rejected in the wallet. Switch networks and try again."
	case ErrUnsupportedChain:
		return "Your wallet does not have this network configured. Add it in the wallet and try again."
	case ErrChainMismatch:
		return "The wallet is still on a different network after switching. Check the wallet and try again."
	case ErrMerchantTransferFailed:
		return "The merchant payment did not go through. Nothing was charged for the fee."
	case ErrFeeTransferFailed:
		return "The merchant was paid (tx " + ce.MerchantTxHash + ") but the fee transfer failed. Retry to send the fee only."
	case ErrUserCancelled:
		return "The request was cancelled in the wallet."
	case ErrSessionBusy:
		return "Another payment is already in progress in this wallet session."
	case ErrConfigError:
		return "Configuration error: " + ce.Message
	case ErrReceiptNotSaved:
		return "Paid on-chain (tx " + ce.MerchantTxHash + ") but the receipt could not be saved on this device."
	case ErrNotFound:
		return "Not found: " + ce.Message
	default:
		return "Payment failed: " + ce.Error()
	}
}
