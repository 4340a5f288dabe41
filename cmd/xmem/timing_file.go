package main

import (
	"fmt"
	"os"

	xmem "github.com/Xchkoo/Xmem"
)

// loadTiming reads a timing file, decoding by extension onto the defaults.
func loadTiming(path string) (xmem.Timing, error) {
	timing := xmem.DefaultTiming()
	if path == "" {
		return timing, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return timing, fmt.Errorf("read timing: %w", err)
	}
	if err := xmem.CodecFor(path).Unmarshal(data, &timing); err != nil {
		return timing, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := timing.Validate(); err != nil {
		return timing, err
	}
	return timing, nil
}
