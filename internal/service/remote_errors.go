package service

import (
	"net/http"

	"github.com/harborfin/onboarding-api/internal/drive"
	appErrors "github.com/harborfin/onboarding-api/pkg/errors"
)

// wrapRemoteErr translates a drive failure into a typed API error. Terminal
// remote failures keep their upstream status so the HTTP layer can pass
// them through; everything else (retry exhaustion, network trouble) becomes
// a 502.
func wrapRemoteErr(err error, message string) error {
	re := drive.Classify(err)
	switch re.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return appErrors.Wrap(err, appErrors.ErrRemoteDenied.Code, re.StatusCode, message)
	case http.StatusNotFound:
		return appErrors.Wrap(err, appErrors.ErrNotFound.Code, http.StatusNotFound, message)
	default:
		return appErrors.Wrap(err, appErrors.ErrRemoteUnavailable.Code, appErrors.ErrRemoteUnavailable.Status, message)
	}
}
