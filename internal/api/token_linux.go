//go:build linux

package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// readPlatformStore queries libsecret through secret-tool, which ships in
// libsecret-tools (Debian) or libsecret (Fedora).
func readPlatformStore(ctx context.Context) ([]byte, error) {
	out, err := exec.CommandContext(ctx, "secret-tool", "lookup",
		"service", keychainLabel).Output()
	if err != nil {
		return nil, fmt.Errorf("secret-tool lookup: %w", err)
	}
	out = bytes.TrimSpace(out)
	if len(out) == 0 {
		return nil, errors.New("secret-tool returned an empty secret")
	}
	return out, nil
}
