//go:build windows

package libmysql

import (
	"syscall"
)

// ulong matches the C `unsigned long` on LLP64 targets.
type ulong = uint32

// loadClientLibrary loads the MySQL client library on Windows.
func loadClientLibrary(libPath string) (uintptr, error) {
	handle, err := syscall.LoadLibrary(libPath)
	if err != nil {
		return 0, err
	}
	return uintptr(handle), nil
}
