package logger

import (
	"strconv"
	"strings"
	"sync/atomic"

	"golang.org/x/time/rate"
)

const defaultDebugEvery = 50

// debugSampler gates high-volume debug records. A nil sampler keeps everything.
var debugSampler atomic.Pointer[rate.Sometimes]

// setDebugEvery keeps one record in every n, starting with the first.
func setDebugEvery(n int) {
	if n <= 1 {
		debugSampler.Store(nil)
		return
	}
	debugSampler.Store(&rate.Sometimes{Every: n})
}

func sampleDebug() bool {
	s := debugSampler.Load()
	if s == nil {
		return true
	}
	keep := false
	s.Do(func() { keep = true })
	return keep
}

// parseDebugEvery reads logging.debug_sample. "N" keeps every Nth record,
// "a/b" keeps about a of every b, and "0" or "all" keeps everything.
// Anything else falls back to the default.
func parseDebugEvery(spec string) int {
	spec = strings.ToLower(strings.TrimSpace(spec))
	switch spec {
	case "":
		return defaultDebugEvery
	case "0", "all":
		return 1
	}

	num, den := 1, 0
	var err error
	if a, b, ok := strings.Cut(spec, "/"); ok {
		if num, err = strconv.Atoi(strings.TrimSpace(a)); err != nil {
			return defaultDebugEvery
		}
		den, err = strconv.Atoi(strings.TrimSpace(b))
	} else {
		den, err = strconv.Atoi(spec)
	}
	if err != nil || num <= 0 || den <= 0 {
		return defaultDebugEvery
	}
	if num >= den {
		return 1
	}
	return (den + num/2) / num
}
