//go:build darwin

package api

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// readPlatformStore asks the login keychain for the generic password stored
// under the Claude Code label.
func readPlatformStore(ctx context.Context) ([]byte, error) {
	out, err := exec.CommandContext(ctx, "security", "find-generic-password",
		"-s", keychainLabel, "-w").Output()
	if err != nil {
		return nil, fmt.Errorf("security find-generic-password: %w", err)
	}
	return bytes.TrimSpace(out), nil
}
