package utils

import "sync"

var gdalMu sync.Mutex

// ExecuteWithMutex serializes calls into GDAL.
func ExecuteWithMutex(fn func()) {
	gdalMu.Lock()
	defer gdalMu.Unlock()
	fn()
}

// ExecuteWithMutexErr is ExecuteWithMutex for callbacks that fail.
func ExecuteWithMutexErr(fn func() error) error {
	var err error
	ExecuteWithMutex(func() {
		err = fn()
	})
	return err
}
