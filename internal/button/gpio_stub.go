//go:build !linux || (!arm && !arm64)

package button

import (
	"fmt"
	"time"
)

func openLine(pin int, debounce time.Duration) (inputLine, error) {
	return nil, fmt.Errorf("button: gpio unsupported on this platform")
}

var openLineFn = openLine
