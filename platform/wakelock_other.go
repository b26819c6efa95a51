//go:build !linux

package platform

func newInhibitor() (inhibitor, error) {
	return nil, ErrWakeLockUnsupported
}
