package auth

import "errors"

var (
	// ErrNotAuthenticated means no session exists on this machine.
	ErrNotAuthenticated = errors.New("not authenticated; run 'flctl auth login'")
	// ErrSessionExpired means the session can no longer be refreshed; the
	// provider rejected the refresh token or none was issued.
	ErrSessionExpired = errors.New("session expired; run 'flctl auth login'")
	// ErrDeviceFlowExpired means the device code lapsed before the user
	// completed authorization. The flow cannot be resumed.
	ErrDeviceFlowExpired = errors.New("device authorization expired; restart login")
	// ErrDeviceFlowDenied means the provider or the user rejected the
	// authorization attempt.
	ErrDeviceFlowDenied = errors.New("device authorization denied")
)
