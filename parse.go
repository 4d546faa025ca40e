package netsweep

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// SpecKind discriminates the active variant of a NetworkSpec.
type SpecKind int

const (
	// SpecCIDR is a base address plus prefix length.
	SpecCIDR SpecKind = iota
	// SpecRange is an explicit start-end address interval.
	SpecRange
	// SpecTraditional is an address plus dotted-quad subnet mask.
	SpecTraditional
)

func (k SpecKind) String() string {
	switch k {
	case SpecCIDR:
		return "cidr"
	case SpecRange:
		return "range"
	case SpecTraditional:
		return "traditional"
	default:
		return "unknown"
	}
}

// NetworkSpec is the canonical form of a parsed network specification.
// Exactly one variant is active, selected by Kind; the constructors below
// are the only way specs are built inside the package, which keeps the
// per-variant fields consistent.
type NetworkSpec struct {
	Kind SpecKind

	// SpecCIDR
	BaseAddress  string `json:"base_address,omitempty"`
	PrefixLength int    `json:"prefix_length,omitempty"`

	// SpecRange
	StartAddress string `json:"start_address,omitempty"`
	EndAddress   string `json:"end_address,omitempty"`

	// SpecTraditional
	Address    string `json:"address,omitempty"`
	SubnetMask string `json:"subnet_mask,omitempty"`
}

// Mask returns the effective dotted-quad subnet mask of the spec. Range
// specs have no mask.
func (s NetworkSpec) Mask() (string, error) {
	switch s.Kind {
	case SpecCIDR:
		return MaskFromPrefix(s.PrefixLength)
	case SpecTraditional:
		return s.SubnetMask, nil
	default:
		return "", fmt.Errorf("network spec kind %s has no subnet mask", s.Kind)
	}
}

// NetworkInput is the structured specification shape accepted from
// external callers. Either Network carries a full specification string, or
// Address plus SubnetMask and/or PrefixLength describe a traditional
// address-and-mask pair.
type NetworkInput struct {
	Network      string `json:"network,omitempty"`
	Address      string `json:"address,omitempty"`
	SubnetMask   string `json:"subnet_mask,omitempty"`
	PrefixLength *int   `json:"prefix_length,omitempty"`
}

var (
	cidrPattern  = regexp.MustCompile(`^(\d{1,3}(?:\.\d{1,3}){3})/(\d{1,2})$`)
	rangePattern = regexp.MustCompile(`^(\d{1,3}(?:\.\d{1,3}){3})\s*-\s*(\d{1,3}(?:\.\d{1,3}){3})$`)
	quadPattern  = regexp.MustCompile(`^\d{1,3}(?:\.\d{1,3}){3}$`)
)

// Parse classifies a network specification string into its canonical
// NetworkSpec. The grammar, tried in order: "a.b.c.d/n" (CIDR), then
// "a.b.c.d-e.f.g.h" (range). Parsing is pure and stateless; identical
// input always yields identical output.
func Parse(input string) (NetworkSpec, error) {
	trimmed := strings.TrimSpace(input)

	if m := cidrPattern.FindStringSubmatch(trimmed); m != nil {
		if _, err := parseQuad(input, m[1]); err != nil {
			return NetworkSpec{}, err
		}
		prefix, err := strconv.Atoi(m[2])
		if err != nil || prefix > 32 {
			return NetworkSpec{}, newParseError(input, ParseInvalidFormat,
				fmt.Sprintf("prefix length %s out of range (0-32)", m[2]))
		}
		return NetworkSpec{Kind: SpecCIDR, BaseAddress: m[1], PrefixLength: prefix}, nil
	}

	if m := rangePattern.FindStringSubmatch(trimmed); m != nil {
		start, err := parseQuad(input, m[1])
		if err != nil {
			return NetworkSpec{}, err
		}
		end, err := parseQuad(input, m[2])
		if err != nil {
			return NetworkSpec{}, err
		}
		if start > end {
			return NetworkSpec{}, newParseError(input, ParseRangeOrder,
				fmt.Sprintf("start address %s is above end address %s", m[1], m[2]))
		}
		return NetworkSpec{Kind: SpecRange, StartAddress: m[1], EndAddress: m[2]}, nil
	}

	return NetworkSpec{}, newParseError(input, ParseInvalidFormat,
		"expected a.b.c.d/n or a.b.c.d-e.f.g.h")
}

// ParseInput normalizes a structured specification. A populated Network
// field recurses into Parse; otherwise Address plus SubnetMask and/or
// PrefixLength yield a traditional spec, deriving the mask from the prefix
// when only the prefix is given.
func ParseInput(in NetworkInput) (NetworkSpec, error) {
	if in.Network != "" {
		return Parse(in.Network)
	}

	if in.Address == "" {
		return NetworkSpec{}, newParseError("", ParseInvalidFormat,
			"structured input needs a network string or an address")
	}
	if !quadPattern.MatchString(in.Address) {
		return NetworkSpec{}, newParseError(in.Address, ParseInvalidFormat,
			"address is not a dotted quad")
	}
	if _, err := parseQuad(in.Address, in.Address); err != nil {
		return NetworkSpec{}, err
	}

	switch {
	case in.SubnetMask != "":
		prefix, err := PrefixFromMask(in.SubnetMask)
		if err != nil {
			return NetworkSpec{}, newParseError(in.SubnetMask, ParseInvalidFormat,
				"subnet mask is not a contiguous dotted quad")
		}
		if in.PrefixLength != nil && *in.PrefixLength != prefix {
			return NetworkSpec{}, newParseError(in.Address, ParseInvalidFormat,
				fmt.Sprintf("prefix length %d is inconsistent with subnet mask %s", *in.PrefixLength, in.SubnetMask))
		}
		return NetworkSpec{Kind: SpecTraditional, Address: in.Address, SubnetMask: in.SubnetMask}, nil

	case in.PrefixLength != nil:
		mask, err := MaskFromPrefix(*in.PrefixLength)
		if err != nil {
			return NetworkSpec{}, newParseError(in.Address, ParseInvalidFormat,
				fmt.Sprintf("prefix length %d out of range (0-32)", *in.PrefixLength))
		}
		return NetworkSpec{Kind: SpecTraditional, Address: in.Address, SubnetMask: mask}, nil

	default:
		return NetworkSpec{}, newParseError(in.Address, ParseInvalidFormat,
			"structured input needs a subnet mask or prefix length")
	}
}

// parseQuad validates each octet of a dotted quad and returns its uint32
// value. The spec string is reported in errors, not the fragment.
func parseQuad(spec, quad string) (uint32, error) {
	var v uint32
	for _, part := range strings.Split(quad, ".") {
		if len(part) > 1 && part[0] == '0' {
			return 0, newParseError(spec, ParseInvalidOctet,
				fmt.Sprintf("octet %s has a leading zero", part))
		}
		octet, err := strconv.Atoi(part)
		if err != nil || octet < 0 || octet > 255 {
			return 0, newParseError(spec, ParseInvalidOctet,
				fmt.Sprintf("octet %s out of range (0-255)", part))
		}
		v = v<<8 | uint32(octet)
	}
	return v, nil
}
