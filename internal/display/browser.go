package display

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
)

// Opener opens a URL outside the program.
type Opener interface {
	Open(rawURL string) error
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(rawURL string) error

// Open calls f(rawURL).
func (f OpenerFunc) Open(rawURL string) error {
	return f(rawURL)
}

// Browser opens URLs in the user's default browser.
var Browser Opener = OpenerFunc(OpenBrowser)

// OpenBrowser opens the specified URL in the user's default browser.
// Only http and https URLs are accepted.
func OpenBrowser(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("refusing to open %q: unsupported scheme", rawURL)
	}

	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", rawURL).Start()
	case "linux", "freebsd", "openbsd", "netbsd":
		return exec.Command("xdg-open", rawURL).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", rawURL).Start()
	default:
		return fmt.Errorf("unsupported OS: %s", runtime.GOOS)
	}
}
