//go:build !windows

package libmysql

import (
	"github.com/ebitengine/purego"
)

// ulong matches the C `unsigned long` on LP64 targets.
type ulong = uint64

// loadClientLibrary loads the MySQL client library on Unix-like systems.
func loadClientLibrary(libPath string) (uintptr, error) {
	return purego.Dlopen(libPath, purego.RTLD_NOW|purego.RTLD_GLOBAL)
}
