package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

func formatSize(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

// formatDuration は再生時間を m:ss.mmm 形式にします
func formatDuration(d time.Duration) string {
	ms := d.Milliseconds()
	return fmt.Sprintf("%d:%02d.%03d", ms/60000, ms/1000%60, ms%1000)
}

func formatLoop(has bool, start, end uint32) string {
	if !has {
		return "-"
	}
	return fmt.Sprintf("%d-%d", start, end)
}
