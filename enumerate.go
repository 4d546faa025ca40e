package netsweep

import "fmt"

// Expand materializes a canonical spec into the ordered list of addresses
// to probe, ascending by unsigned 32-bit value. CIDR and traditional specs
// expand to the subnet's usable interior; a /31 or /32 expands to an empty
// list, which is caller-visible and not an error. Range specs expand to
// every address from start to end inclusive.
func Expand(spec NetworkSpec) ([]string, error) {
	switch spec.Kind {
	case SpecCIDR, SpecTraditional:
		address := spec.BaseAddress
		if spec.Kind == SpecTraditional {
			address = spec.Address
		}
		mask, err := spec.Mask()
		if err != nil {
			return nil, err
		}
		hosts, ok, err := UsableRange(address, mask)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		return expandInterval(hosts.First, hosts.Last)

	case SpecRange:
		return expandInterval(spec.StartAddress, spec.EndAddress)

	default:
		return nil, fmt.Errorf("unknown network spec kind %d", spec.Kind)
	}
}

func expandInterval(first, last string) ([]string, error) {
	start, err := ipv4ToUint32(first)
	if err != nil {
		return nil, err
	}
	end, err := ipv4ToUint32(last)
	if err != nil {
		return nil, err
	}
	if start > end {
		return nil, fmt.Errorf("address interval %s-%s is reversed", first, last)
	}

	addresses := make([]string, 0, end-start+1)
	for v := start; ; v++ {
		addresses = append(addresses, uint32ToIPv4(v))
		if v == end {
			break
		}
	}
	return addresses, nil
}
