package utils

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// ReceiptIDPrefix starts every generated receipt id.
const ReceiptIDPrefix = "OLY"

var receiptIDPattern = regexp.MustCompile(`^OLY-[0-9A-F]{4}-[0-9A-F]{4}$`)

// NewReceiptID returns an id of the form OLY-XXXX-XXXX drawn from a random UUID.
func NewReceiptID() string {
	h := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return ReceiptIDPrefix + "-" + h[:4] + "-" + h[4:8]
}

// IsReceiptID reports whether id has the generated receipt id shape.
func IsReceiptID(id string) bool {
	return receiptIDPattern.MatchString(id)
}
