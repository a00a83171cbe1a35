// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import "fmt"

// Byte-size thresholds for FormatBytes.
const (
	sizeKB = 1024
	sizeMB = 1048576
	sizeGB = 1073741824
)

// FormatBytes renders a byte count as a human-readable size with two
// decimal places (e.g. "1.50 MB"). Values under 1 KB are printed as-is.
func FormatBytes(bytes int64) string {
	switch {
	case bytes >= sizeGB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/float64(sizeGB))
	case bytes >= sizeMB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/float64(sizeMB))
	case bytes >= sizeKB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/float64(sizeKB))
	default:
		return fmt.Sprintf("%d bytes", bytes)
	}
}
