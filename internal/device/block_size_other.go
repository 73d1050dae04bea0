//go:build !linux

package device

import "errors"

func deviceBlockSize(path string) (uint32, error) {
	return 0, errors.New("block size ioctl not supported on this platform")
}
