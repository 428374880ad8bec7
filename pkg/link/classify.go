package link

import (
	"context"
	"errors"
	"net"
	"os"
	"strings"

	"go.bug.st/serial"

	apperrors "github.com/SAMS0N1TE/meshtui/pkg/errors"
)

// ErrUnavailable is returned when no radio dialer was wired in at all.
var ErrUnavailable = errors.New("radio support unavailable")

// Classify maps a raw dial failure onto the connect-error taxonomy so the
// UI can show a targeted remediation hint.
func Classify(err error, target string) *apperrors.ConnectError {
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrUnavailable) {
		return apperrors.NewConnectError(apperrors.ConnectUnavailable, target, err)
	}

	var portErr *serial.PortError
	if errors.As(err, &portErr) {
		switch portErr.Code() {
		case serial.PortBusy:
			return apperrors.NewConnectError(apperrors.ConnectPortBusy, target, err)
		case serial.PermissionDenied:
			return apperrors.NewConnectError(apperrors.ConnectPermission, target, err)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
		return apperrors.NewConnectError(apperrors.ConnectTimeout, target, err)
	}
	if errors.Is(err, os.ErrPermission) {
		return apperrors.NewConnectError(apperrors.ConnectPermission, target, err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timed out") || strings.Contains(msg, "timeout"):
		return apperrors.NewConnectError(apperrors.ConnectTimeout, target, err)
	case strings.Contains(msg, "permission denied") || strings.Contains(msg, "access is denied"):
		return apperrors.NewConnectError(apperrors.ConnectPermission, target, err)
	case strings.Contains(msg, "busy") || strings.Contains(msg, "in use"):
		return apperrors.NewConnectError(apperrors.ConnectPortBusy, target, err)
	}
	return apperrors.NewConnectError(apperrors.ConnectGeneric, target, err)
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
