package checkout

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/quenbyco/storefront-backend/internal/cart"
)

// Fingerprint derives a stable digest of the cart contents. Two carts with
// the same (variant, quantity) pairs produce the same fingerprint regardless
// of insertion order, so a retried Start call dedupes against the same key.
func Fingerprint(items []cart.ItemDTO) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, fmt.Sprintf("%s:%d", item.VariantID, item.Quantity))
	}
	sort.Strings(lines)
	sum := sha256.Sum256([]byte(strings.Join(lines, "|")))
	return hex.EncodeToString(sum[:])
}
