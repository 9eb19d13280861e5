package models

import "fmt"

// SizeLabel renders a byte count as the display string stored in audio
// metadata, e.g. "1.4 MB". The leading number doubles as the size sort
// key.
func SizeLabel(n int64) string {
	const (
		kb = 1 << 10
		mb = 1 << 20
	)
	switch {
	case n >= mb:
		return fmt.Sprintf("%.1f MB", float64(n)/mb)
	case n >= kb:
		return fmt.Sprintf("%.1f KB", float64(n)/kb)
	}
	return fmt.Sprintf("%d B", n)
}
