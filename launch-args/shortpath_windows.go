//go:build windows

package launch_args

import (
	"golang.org/x/sys/windows"
)

// shortPath returns the 8.3 form of p, or p itself when the volume has short
// names disabled.
func shortPath(p string) string {
	from, err := windows.UTF16PtrFromString(p)
	if err != nil {
		return p
	}
	buf := make([]uint16, windows.MAX_PATH)
	n, err := windows.GetShortPathName(from, &buf[0], uint32(len(buf)))
	if err != nil || n == 0 {
		return p
	}
	if n > uint32(len(buf)) {
		buf = make([]uint16, n)
		n, err = windows.GetShortPathName(from, &buf[0], n)
		if err != nil || n == 0 {
			return p
		}
	}
	return windows.UTF16ToString(buf[:n])
}
