package ingest

import (
	"fmt"
	"os"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/process"
)

var (
	selfOnce sync.Once
	self     *process.Process
)

// rss returns the resident set size of this process, humanized, or "n/a".
func rss() string {
	selfOnce.Do(func() {
		self, _ = process.NewProcess(int32(os.Getpid()))
	})
	if self == nil {
		return "n/a"
	}

	info, err := self.MemoryInfo()
	if err != nil || info == nil {
		return "n/a"
	}

	return humanize.IBytes(info.RSS)
}

func mib(n int64) string {
	return fmt.Sprintf("%.2fMB", float64(n)/1024/1024)
}
