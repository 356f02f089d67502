//go:build windows

package preflight

import "os"

// checkAccess creates and removes a probe file; Windows ACLs are not
// reflected in mode bits.
func checkAccess(path string) error {
	f, err := os.CreateTemp(path, ".ytdesk-access-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}
