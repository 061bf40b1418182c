// Package display hosts rendered views and delivers the commands the user
// issues from them. The web surface serves views on a loopback HTTP server
// and opens them in the system browser.
package display
