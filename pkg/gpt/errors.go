package gpt

import "errors"

// Error taxonomy for GPT structural failures (spec.md §7).
var (
	ErrInvalidGptMbr    = errors.New("gpt: protective MBR required")
	ErrInvalidGptHeader = errors.New("gpt: no valid primary or secondary header")
	ErrInvalidGptCrc    = errors.New("gpt: partition array CRC mismatch")
)
