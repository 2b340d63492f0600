package topology

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubnet(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		prefix   string
		newbits  int
		netnum   int
		expected string
		wantErr  bool
	}{
		{
			name:     "first /20 of a /16",
			prefix:   "10.0.0.0/16",
			newbits:  4,
			netnum:   0,
			expected: "10.0.0.0/20",
		},
		{
			name:     "second /20 of a /16",
			prefix:   "10.0.0.0/16",
			newbits:  4,
			netnum:   1,
			expected: "10.0.16.0/20",
		},
		{
			name:     "last /20 of a /16",
			prefix:   "10.0.0.0/16",
			newbits:  4,
			netnum:   15,
			expected: "10.0.240.0/20",
		},
		{
			name:     "offset block",
			prefix:   "172.16.0.0/16",
			newbits:  4,
			netnum:   5,
			expected: "172.16.80.0/20",
		},
		{
			name:    "netnum out of range",
			prefix:  "10.0.0.0/16",
			newbits: 4,
			netnum:  16,
			wantErr: true,
		},
		{
			name:    "invalid prefix",
			prefix:  "not-a-cidr",
			newbits: 4,
			netnum:  0,
			wantErr: true,
		},
		{
			name:    "newbits overflow the address",
			prefix:  "10.0.0.0/30",
			newbits: 4,
			netnum:  0,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Subnet(tt.prefix, tt.newbits, tt.netnum)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestOverlap(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		a        string
		b        string
		expected bool
	}{
		{name: "disjoint siblings", a: "10.0.0.0/20", b: "10.0.16.0/20", expected: false},
		{name: "identical", a: "10.0.0.0/20", b: "10.0.0.0/20", expected: true},
		{name: "nested", a: "10.0.0.0/16", b: "10.0.32.0/20", expected: true},
		{name: "different blocks", a: "10.0.0.0/16", b: "172.16.0.0/16", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, a, err := net.ParseCIDR(tt.a)
			require.NoError(t, err)
			_, b, err := net.ParseCIDR(tt.b)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, Overlap(a, b))
			assert.Equal(t, tt.expected, Overlap(b, a))
		})
	}
}
