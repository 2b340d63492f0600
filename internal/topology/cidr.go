package topology

import (
	"encoding/binary"
	"fmt"
	"net"
)

// Subnet calculates a child subnet of prefix by extending its mask with
// newbits and selecting the netnum-th slot, following the cidrsubnet
// convention. Only IPv4 prefixes are supported.
func Subnet(prefix string, newbits, netnum int) (string, error) {
	_, network, err := net.ParseCIDR(prefix)
	if err != nil {
		return "", fmt.Errorf("invalid CIDR prefix: %w", err)
	}
	if network.IP.To4() == nil {
		return "", fmt.Errorf("only IPv4 prefixes are supported, got %s", prefix)
	}

	maskSize, totalBits := network.Mask.Size()
	newMaskSize := maskSize + newbits
	if newMaskSize > totalBits {
		return "", fmt.Errorf("prefix extension of %d bits is too large for %s", newbits, prefix)
	}

	if maxSubnets := 1 << newbits; netnum >= maxSubnets {
		return "", fmt.Errorf("subnet number %d exceeds max subnets %d", netnum, maxSubnets)
	}

	base := ipToUint(network.IP)
	slotSize := uint32(1) << (totalBits - newMaskSize)
	// #nosec G115
	addr := uintToIP(base + uint32(netnum)*slotSize)

	return fmt.Sprintf("%s/%d", addr, newMaskSize), nil
}

// Overlap reports whether two parsed networks share any addresses.
func Overlap(a, b *net.IPNet) bool {
	return a.Contains(b.IP) || b.Contains(a.IP)
}

func ipToUint(ip net.IP) uint32 {
	if ip4 := ip.To4(); ip4 != nil {
		return binary.BigEndian.Uint32(ip4)
	}
	return 0
}

func uintToIP(val uint32) net.IP {
	ip := make(net.IP, net.IPv4len)
	binary.BigEndian.PutUint32(ip, val)
	return ip
}
