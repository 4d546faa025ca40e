package netsweep

import (
	"errors"
	"fmt"
	"net"
)

// Subnet arithmetic errors
var (
	ErrInvalidPrefixLength = errors.New("prefix length out of range (0-32)")
	ErrInvalidMask         = errors.New("invalid subnet mask")
	ErrNotIPv4             = errors.New("not an IPv4 address")
)

// HostRange is the usable interior of a subnet: every address between the
// network and broadcast addresses, exclusive.
type HostRange struct {
	First string
	Last  string
}

// MaskFromPrefix builds a dotted-quad subnet mask with the top prefix bits
// set. Prefix 0 yields 0.0.0.0 and prefix 32 yields 255.255.255.255.
func MaskFromPrefix(prefix int) (string, error) {
	if prefix < 0 || prefix > 32 {
		return "", fmt.Errorf("%w: %d", ErrInvalidPrefixLength, prefix)
	}
	var mask uint32
	if prefix > 0 {
		mask = ^uint32(0) << uint(32-prefix)
	}
	return uint32ToIPv4(mask), nil
}

// PrefixFromMask converts a dotted-quad subnet mask to its prefix length.
// The mask must be contiguous: all set bits above all clear bits.
func PrefixFromMask(mask string) (int, error) {
	v, err := ipv4ToUint32(mask)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidMask, mask)
	}
	prefix := 0
	for v != 0 {
		if v&0x80000000 == 0 {
			// A clear bit below a set bit means the mask is not contiguous.
			return 0, fmt.Errorf("%w: %s is not contiguous", ErrInvalidMask, mask)
		}
		prefix++
		v <<= 1
	}
	return prefix, nil
}

// UsableRange computes the usable host interval of the subnet containing
// address under mask. The network address is address AND mask, the
// broadcast is network OR NOT mask, and the usable interval is everything
// strictly between them. For /31 and /32 subnets there is no interior, and
// the second return value is false; that is a legitimate outcome, not an
// error.
func UsableRange(address, mask string) (HostRange, bool, error) {
	addr, err := ipv4ToUint32(address)
	if err != nil {
		return HostRange{}, false, err
	}
	m, err := ipv4ToUint32(mask)
	if err != nil {
		return HostRange{}, false, fmt.Errorf("%w: %s", ErrInvalidMask, mask)
	}

	network := addr & m
	broadcast := network | ^m
	first := network + 1
	last := broadcast - 1

	if first > last || broadcast-network < 2 {
		return HostRange{}, false, nil
	}
	return HostRange{First: uint32ToIPv4(first), Last: uint32ToIPv4(last)}, true, nil
}

// ipv4ToUint32 converts a dotted-quad string to its network-order integer
// value. All interval comparisons in this package happen on this form.
func ipv4ToUint32(s string) (uint32, error) {
	ip := net.ParseIP(s)
	if ip == nil {
		return 0, fmt.Errorf("%w: %s", ErrNotIPv4, s)
	}
	v4 := ip.To4()
	if v4 == nil {
		return 0, fmt.Errorf("%w: %s", ErrNotIPv4, s)
	}
	return uint32(v4[0])<<24 | uint32(v4[1])<<16 | uint32(v4[2])<<8 | uint32(v4[3]), nil
}

func uint32ToIPv4(v uint32) string {
	return net.IPv4(byte(v>>24), byte(v>>16), byte(v>>8), byte(v)).String()
}
