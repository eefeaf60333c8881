//go:build !govips || !cgo

package analysis

func Startup() error {
	return nil
}

func Shutdown() {}

func newThumbnailer() (Thumbnailer, error) {
	return stdlibThumbnailer{}, nil
}
