package rawdisk

import (
	"runtime"
	"testing"
)

func TestNormalizePathNonWindowsIsNoop(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("exercises the non-windows passthrough branch")
	}
	if got := NormalizePath("/dev/sda"); got != "/dev/sda" {
		t.Fatalf("expected passthrough on %s, got %q", runtime.GOOS, got)
	}
}
