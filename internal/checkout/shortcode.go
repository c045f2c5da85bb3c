package checkout

import "strings"

// ShortCode derives the compact code buyers and operators see instead
// of the full order id: the first eight hex digits, uppercased.
func ShortCode(orderID string) string {
	compact := strings.ReplaceAll(orderID, "-", "")
	if len(compact) > 8 {
		compact = compact[:8]
	}
	return strings.ToUpper(compact)
}
