package netsweep

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCIDR(t *testing.T) {
	spec, err := Parse("10.0.0.0/24")
	require.NoError(t, err)
	assert.Equal(t, SpecCIDR, spec.Kind)
	assert.Equal(t, "10.0.0.0", spec.BaseAddress)
	assert.Equal(t, 24, spec.PrefixLength)

	mask, err := spec.Mask()
	require.NoError(t, err)
	assert.Equal(t, "255.255.255.0", mask)
}

func TestParseCIDRBounds(t *testing.T) {
	for _, input := range []string{"0.0.0.0/0", "255.255.255.255/32"} {
		spec, err := Parse(input)
		require.NoError(t, err, input)
		assert.Equal(t, SpecCIDR, spec.Kind, input)
	}
}

func TestParseRange(t *testing.T) {
	spec, err := Parse("10.0.0.1-10.0.0.5")
	require.NoError(t, err)
	assert.Equal(t, SpecRange, spec.Kind)
	assert.Equal(t, "10.0.0.1", spec.StartAddress)
	assert.Equal(t, "10.0.0.5", spec.EndAddress)

	// Whitespace around the dash is tolerated.
	spec, err = Parse("10.0.0.1 - 10.0.0.5")
	require.NoError(t, err)
	assert.Equal(t, SpecRange, spec.Kind)
}

func TestParseRangeOrder(t *testing.T) {
	_, err := Parse("10.0.0.5-10.0.0.1")
	require.Error(t, err)
	assert.True(t, IsRangeOrderError(err))
	assert.True(t, IsParseError(err))

	// Equal start and end is a legal single-address range.
	spec, err := Parse("10.0.0.5-10.0.0.5")
	require.NoError(t, err)
	assert.Equal(t, SpecRange, spec.Kind)
}

func TestParseInvalidOctet(t *testing.T) {
	for _, input := range []string{"10.0.0.256/24", "300.1.2.3-300.1.2.4", "1.2.3.999/8"} {
		_, err := Parse(input)
		require.Error(t, err, input)
		assert.True(t, IsInvalidOctetError(err), "input %q: %v", input, err)
	}
}

func TestParseRejectsLeadingZeroOctets(t *testing.T) {
	for _, input := range []string{"010.0.0.1-10.0.0.5", "10.00.0.1/24", "192.168.001.0/24"} {
		_, err := Parse(input)
		require.Error(t, err, input)
		assert.True(t, IsInvalidOctetError(err), "input %q: %v", input, err)
	}

	// A bare zero octet is still legal, and everything Parse accepts must
	// survive expansion, so a spec error can never surface later as an
	// address conversion failure.
	spec, err := Parse("0.0.0.0/30")
	require.NoError(t, err)
	addresses, err := Expand(spec)
	require.NoError(t, err)
	assert.Equal(t, []string{"0.0.0.1", "0.0.0.2"}, addresses)
}

func TestParseInvalidFormat(t *testing.T) {
	inputs := []string{
		"",
		"garbage",
		"10.0.0.1",    // bare address, no mask or range
		"10.0.0.0/33", // prefix out of range
		"10.0.0.0/24/8",
		"10.0.0.1-10.0.0.2-10.0.0.3",
		"10.0.0.1:10.0.0.5",
	}
	for _, input := range inputs {
		_, err := Parse(input)
		require.Error(t, err, input)
		assert.True(t, IsInvalidFormatError(err), "input %q: %v", input, err)
	}
}

func TestParseIsPureAndDeterministic(t *testing.T) {
	for _, input := range []string{"172.16.0.0/12", "10.0.0.1-10.0.0.9"} {
		first, err1 := Parse(input)
		second, err2 := Parse(input)
		require.NoError(t, err1)
		require.NoError(t, err2)
		assert.Equal(t, first, second, input)
	}
}

func TestParseInputNetworkString(t *testing.T) {
	spec, err := ParseInput(NetworkInput{Network: "192.168.0.0/16"})
	require.NoError(t, err)
	assert.Equal(t, SpecCIDR, spec.Kind)
	assert.Equal(t, 16, spec.PrefixLength)

	_, err = ParseInput(NetworkInput{Network: "bogus"})
	assert.True(t, IsInvalidFormatError(err))
}

func TestParseInputTraditional(t *testing.T) {
	spec, err := ParseInput(NetworkInput{Address: "192.168.1.10", SubnetMask: "255.255.255.0"})
	require.NoError(t, err)
	assert.Equal(t, SpecTraditional, spec.Kind)
	assert.Equal(t, "192.168.1.10", spec.Address)
	assert.Equal(t, "255.255.255.0", spec.SubnetMask)
}

func TestParseInputDerivesMaskFromPrefix(t *testing.T) {
	prefix := 26
	spec, err := ParseInput(NetworkInput{Address: "10.1.1.1", PrefixLength: &prefix})
	require.NoError(t, err)
	assert.Equal(t, SpecTraditional, spec.Kind)
	assert.Equal(t, "255.255.255.192", spec.SubnetMask)
}

func TestParseInputConsistencyCheck(t *testing.T) {
	matching := 24
	_, err := ParseInput(NetworkInput{Address: "10.1.1.1", SubnetMask: "255.255.255.0", PrefixLength: &matching})
	require.NoError(t, err)

	conflicting := 16
	_, err = ParseInput(NetworkInput{Address: "10.1.1.1", SubnetMask: "255.255.255.0", PrefixLength: &conflicting})
	require.Error(t, err)
	assert.True(t, IsInvalidFormatError(err))
}

func TestParseInputRejectsIncomplete(t *testing.T) {
	cases := []NetworkInput{
		{},                    // nothing at all
		{Address: "10.0.0.1"}, // address without mask or prefix
		{Address: "10.0.0.999", SubnetMask: "255.0.0.0"},
		{Address: "10.0.0.1", SubnetMask: "255.0.255.0"}, // non-contiguous mask
	}
	for i, in := range cases {
		_, err := ParseInput(in)
		require.Error(t, err, "case %d", i)
		assert.True(t, IsParseError(err), "case %d: %v", i, err)
	}
}
