//go:build windows

package host

import "os"

// Windows has no user signal; activation comes only from the window itself.
func notifyActivate(chan<- os.Signal) {}
