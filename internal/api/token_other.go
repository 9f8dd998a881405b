//go:build !darwin && !linux && !windows

package api

import (
	"context"
	"fmt"
	"runtime"
)

func readPlatformStore(context.Context) ([]byte, error) {
	return nil, fmt.Errorf("no credential store support on %s", runtime.GOOS)
}
