/*
phone.go - Entity identity normalization

PURPOSE:
  Customers are keyed by phone number, and phone numbers arrive in every
  spelling people can invent: "+91 98765-43210", "98765 43210",
  "9876543210". The ledger must fold all of them into one bucket or a
  customer's history fragments across keys.

RULE:
  Keep digits only, then keep the trailing 10 digits when more remain —
  that folds a leading country code ("+91", "0091") into the same local
  number. Applied at every lookup AND every write boundary; raw input
  never reaches a store key.

SEE ALSO:
  - service.go: applies this at each boundary
*/
package receivables

import (
	"strings"

	"github.com/brickworks/ledger-engine/ledger"
)

// localNumberLength is the national significant number length the ledger
// keys on.
const localNumberLength = 10

// NormalizePhone reduces a raw phone spelling to its canonical ledger key.
func NormalizePhone(raw string) ledger.EntityID {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) > localNumberLength {
		digits = digits[len(digits)-localNumberLength:]
	}
	return ledger.EntityID(digits)
}

// ValidPhoneKey reports whether a normalized key is usable: a full local
// number, nothing shorter.
func ValidPhoneKey(key ledger.EntityID) bool {
	return len(key) == localNumberLength
}

// validEmail is intentionally loose: presence of one "@" with something
// on both sides. Real verification belongs to delivery, not storage.
func validEmail(email string) bool {
	at := strings.Index(email, "@")
	return at > 0 && at < len(email)-1
}
