package payments

import (
	"fmt"
	"math/rand"
	"time"
)

// NewReceiptNo builds a human-readable receipt label. Uniqueness is
// best-effort only; the payment row ID is the true unique key.
func NewReceiptNo(now time.Time) string {
	return fmt.Sprintf("RCPT-%s-%04d", now.UTC().Format("20060102150405"), rand.Intn(10000))
}
