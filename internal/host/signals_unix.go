//go:build !windows

package host

import (
	"os"
	"os/signal"

	"golang.org/x/sys/unix"
)

func notifyActivate(ch chan<- os.Signal) {
	signal.Notify(ch, unix.SIGUSR1)
}
