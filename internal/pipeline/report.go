package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ivlev/mangatl/internal/layout"
	"github.com/ivlev/mangatl/internal/page"
	"github.com/ivlev/mangatl/internal/system"
)

// Timings are wall-clock durations of each stage.
type Timings struct {
	Load      time.Duration
	Detect    time.Duration
	OCR       time.Duration
	Translate time.Duration
	Render    time.Duration
	Total     time.Duration
}

// Report summarises a run.
type Report struct {
	BuildVersion string
	Input        string

	Pages   int // pages in the source
	Skipped int // pages that could not be loaded
	Written int
	Failed  int // written with original pixels

	Bubbles    int
	FreeText   int
	Dropped    int
	Translated int
	Fallbacks  int
	Fitted     int
	NotFitted  int // layout skipped: text too long for the bubble

	TranslationErr error
	PageErrors     map[int]error

	Timings Timings
	Memory  system.MemoryStats
}

func (r *Report) add(res page.Result) {
	r.Written++
	if res.Err != nil {
		r.Failed++
		if r.PageErrors == nil {
			r.PageErrors = map[int]error{}
		}
		r.PageErrors[res.Index] = res.Err
	}
	for _, b := range res.Bubbles {
		switch b.Layout {
		case layout.StatusFitted:
			r.Fitted++
		case layout.StatusSkipped:
			r.NotFitted++
		}
	}
}

func (p *Project) printStats(r *Report) {
	if mem, err := system.ReadMemoryStats(); err == nil {
		r.Memory = mem
	} else {
		p.Log.Debugf("memory stats: %v", err)
	}

	pps := float64(r.Written) / r.Timings.Total.Seconds()
	report := fmt.Sprintf(
		"--- [PERFORMANCE REPORT] ---\n"+
			"Build: %s\n"+
			"Total Time: %.2fs\n"+
			"Loading: %.2fs\n"+
			"Detection: %.2fs\n"+
			"OCR: %.2fs\n"+
			"Translation: %.2fs\n"+
			"Inpaint + Render: %.2fs\n"+
			"Pages: %d written, %d failed, %d skipped (%.2f pages/s)\n"+
			"Bubbles: %d | fitted %d | not fitted %d | fallback %d\n"+
			"Memory: %s\n"+
			"----------------------------",
		r.BuildVersion, r.Timings.Total.Seconds(), r.Timings.Load.Seconds(), r.Timings.Detect.Seconds(),
		r.Timings.OCR.Seconds(), r.Timings.Translate.Seconds(), r.Timings.Render.Seconds(),
		r.Written, r.Failed, r.Skipped, pps,
		r.Bubbles, r.Fitted, r.NotFitted, r.Fallbacks,
		r.Memory,
	)
	p.Log.Info(report)

	if p.Options.BenchmarkLog == "" {
		return
	}

	// Логирование в файл
	logEntry := fmt.Sprintf("[%s] Build: %s | Input: %s | Pages: %d | Bubbles: %d | Total: %.2fs | Detect: %.2fs | Render: %.2fs | RSS: %.1f MiB\n",
		time.Now().Format("2006-01-02 15:04:05"),
		r.BuildVersion,
		filepath.Base(r.Input),
		r.Written,
		r.Bubbles,
		r.Timings.Total.Seconds(),
		r.Timings.Detect.Seconds(),
		r.Timings.Render.Seconds(),
		float64(r.Memory.ProcessRSS)/(1<<20),
	)

	f, err := os.OpenFile(p.Options.BenchmarkLog, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		f.WriteString(logEntry)
		f.Close()
	} else {
		p.Log.Warnf("[!] Не удалось записать %s: %v", p.Options.BenchmarkLog, err)
	}
}
