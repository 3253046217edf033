package auth

import (
	"fmt"
	"os/exec"
	"runtime"
)

// OpenBrowser starts the platform URL handler for url without waiting for it.
func OpenBrowser(url string) error {
	cmd, err := browserCommand(url)
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

func browserCommand(url string) (*exec.Cmd, error) {
	switch runtime.GOOS {
	case "linux", "freebsd", "openbsd", "netbsd":
		return exec.Command("xdg-open", url), nil
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url), nil
	case "darwin":
		return exec.Command("open", url), nil
	}
	return nil, fmt.Errorf("unsupported platform %s", runtime.GOOS)
}
