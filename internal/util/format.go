package util

import (
	"fmt"
	"strings"
)

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB", "PB"}

// FormatSize renders a byte count with up to three decimals, truncated rather
// than rounded so a value just under the next unit never reads as reaching it.
func FormatSize(size int64) string {
	unit := int64(1)
	idx := 0
	for idx < len(sizeUnits)-1 && size >= unit*1024 {
		unit *= 1024
		idx++
	}

	whole := size / unit
	rem := size % unit
	if rem == 0 {
		return fmt.Sprintf("%d %s", whole, sizeUnits[idx])
	}

	milli := rem * 1000 / unit
	frac := strings.TrimRight(fmt.Sprintf("%03d", milli), "0")
	if frac == "" {
		frac = "0"
	}
	return fmt.Sprintf("%d.%s %s", whole, frac, sizeUnits[idx])
}
