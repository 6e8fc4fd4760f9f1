package auth

import (
	"errors"
	"os/exec"
	"runtime"
)

// OpenBrowser asks the desktop to open url. It does not wait for the browser.
func OpenBrowser(url string) error {
	cmd := browserCommand(runtime.GOOS, url)
	if cmd == nil {
		return errors.New("no browser command available")
	}
	return cmd.Start()
}

func browserCommand(goos, url string) *exec.Cmd {
	switch goos {
	case "darwin":
		return exec.Command("open", url)
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "linux", "freebsd", "openbsd", "netbsd":
		return exec.Command("xdg-open", url)
	default:
		return nil
	}
}
