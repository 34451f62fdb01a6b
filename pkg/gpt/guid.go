package gpt

import "github.com/google/uuid"

// mixedEndianGUID reconstructs a standard textual UUID from the GPT wire
// format, which stores the first three fields little-endian and the
// remaining eight bytes as-is (spec.md §4.9 "UUID byte order").
func mixedEndianGUID(raw [16]byte) uuid.UUID {
	var out uuid.UUID
	out[0], out[1], out[2], out[3] = raw[3], raw[2], raw[1], raw[0]
	out[4], out[5] = raw[5], raw[4]
	out[6], out[7] = raw[7], raw[6]
	copy(out[8:], raw[8:])
	return out
}
