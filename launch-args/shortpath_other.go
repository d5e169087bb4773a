//go:build !windows

package launch_args

func shortPath(p string) string {
	return p
}
