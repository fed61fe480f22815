// Package nav models client-side navigation between the anonymous entry
// view and the authenticated landing view.
package nav

import "sync"

const (
	EntryPath   = "/"
	LandingPath = "/home"
)

// Navigator moves the user to another view. Calls are fire-and-forget.
type Navigator interface {
	Navigate(path string)
}

// Func adapts a function to a Navigator.
type Func func(path string)

func (f Func) Navigate(path string) { f(path) }

// Recorder remembers the last navigation target so an HTTP handler can turn
// it into a redirect once the view has finished its work.
type Recorder struct {
	mu     sync.Mutex
	target string
	set    bool
}

func (r *Recorder) Navigate(path string) {
	r.mu.Lock()
	r.target = path
	r.set = true
	r.mu.Unlock()
}

// Target returns the last requested path and whether any navigation happened.
func (r *Recorder) Target() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.target, r.set
}
