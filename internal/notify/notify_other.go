//go:build !darwin && !linux && !windows

package notify

func send(title, message string) error {
	return ErrUnsupported
}
