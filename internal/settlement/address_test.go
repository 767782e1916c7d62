package settlement

import "testing"

func TestIsWellFormedAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		addr string
		want bool
	}{
		{"0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", true},
		{"0xABCDEF0123456789abcdef0123456789ABCDEF01", true},
		{"", false},
		{"0x", false},
		{"0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", false},   // 39 hex digits
		{"0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", false}, // 41 hex digits
		{"1xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", false},
		{"0Xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", false}, // uppercase X
		{"0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaag", false}, // non-hex char
		{"0xaaaaaaaaaaaaaaaaaaaa aaaaaaaaaaaaaaaaaaa", false},
		{"not-an-address", false},
	}
	for _, tt := range tests {
		if got := IsWellFormedAddress(tt.addr); got != tt.want {
			t.Errorf("IsWellFormedAddress(%q) = %v; want %v", tt.addr, got, tt.want)
		}
	}
}
