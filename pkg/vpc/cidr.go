package vpc

import (
	"encoding/binary"
	"fmt"
	"net/netip"
)

// CIDRSubnet returns the netnum-th subnet of prefix extended by newbits,
// like Terraform's cidrsubnet. Only IPv4 is supported.
func CIDRSubnet(prefix string, newbits, netnum int) (string, error) {
	p, err := parseIPv4Prefix(prefix)
	if err != nil {
		return "", err
	}
	bits := p.Bits() + newbits
	if newbits < 0 || bits > 32 {
		return "", fmt.Errorf("prefix extension of %d bits is too large for %s", newbits, prefix)
	}
	if netnum < 0 || netnum >= 1<<newbits {
		return "", fmt.Errorf("subnet number %d exceeds max subnets %d", netnum, 1<<newbits)
	}
	base := addrToUint(p.Addr())
	base += uint32(netnum) << (32 - bits) // #nosec G115
	return netip.PrefixFrom(uintToAddr(base), bits).String(), nil
}

// CIDRHost returns the hostnum-th address within prefix, like Terraform's
// cidrhost. Negative numbers count back from the end of the range.
func CIDRHost(prefix string, hostnum int) (string, error) {
	p, err := parseIPv4Prefix(prefix)
	if err != nil {
		return "", err
	}
	size := int64(1) << (32 - p.Bits())
	n := int64(hostnum)
	if n < 0 {
		n += size
	}
	if n < 0 || n >= size {
		return "", fmt.Errorf("host number %d exceeds max hosts %d", hostnum, size)
	}
	return uintToAddr(addrToUint(p.Addr()) + uint32(n)).String(), nil // #nosec G115
}

// Contains reports whether inner lies entirely within outer.
func Contains(outer, inner string) (bool, error) {
	o, err := parseIPv4Prefix(outer)
	if err != nil {
		return false, err
	}
	i, err := parseIPv4Prefix(inner)
	if err != nil {
		return false, err
	}
	return o.Bits() <= i.Bits() && o.Contains(i.Addr()), nil
}

func parseIPv4Prefix(s string) (netip.Prefix, error) {
	p, err := netip.ParsePrefix(s)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("invalid CIDR prefix: %w", err)
	}
	if !p.Addr().Is4() {
		return netip.Prefix{}, fmt.Errorf("only IPv4 addresses are supported, got %s", s)
	}
	return p.Masked(), nil
}

func addrToUint(a netip.Addr) uint32 {
	b := a.As4()
	return binary.BigEndian.Uint32(b[:])
}

func uintToAddr(v uint32) netip.Addr {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return netip.AddrFrom4(b)
}
