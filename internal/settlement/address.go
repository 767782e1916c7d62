package settlement

// IsWellFormedAddress checks payout identity well-formedness: a 0x-prefixed
// 40-digit hex string, case preserved as supplied. Checksum validation is
// the boundary's job; this only keeps obviously broken identities out of a
// dispatch.
func IsWellFormedAddress(addr string) bool {
	if len(addr) != 42 || addr[0] != '0' || addr[1] != 'x' {
		return false
	}
	for i := 2; i < len(addr); i++ {
		c := addr[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
