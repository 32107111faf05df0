package clients

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vitwit/paylink/wallet"
)

// Node error fragments that mean the signer cannot pay.
var fundsHints = []string{
	"insufficient funds",
	"transfer amount exceeds balance",
}

// classify maps node errors onto wallet sentinels where one applies.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "execution reverted") {
		return fmt.Errorf("%s: %w: %v", op, wallet.ErrReverted, err)
	}
	for _, hint := range fundsHints {
		if strings.Contains(msg, hint) {
			return fmt.Errorf("%s: %w: %v", op, wallet.ErrInsufficientFunds, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
