package vhd

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChecksumIsOnesComplementOfByteSum(t *testing.T) {
	buf := []byte{1, 2, 3, 4}
	require.Equal(t, ^uint32(10), checksum(buf))
}

func TestChecksumChangesOnCorruption(t *testing.T) {
	buf := []byte{1, 2, 3, 4}
	a := checksum(buf)
	buf[0] = 0xFF
	b := checksum(buf)
	require.NotEqual(t, a, b)
}
