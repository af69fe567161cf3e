package pulse

import "errors"

// Action tags every operation result carries. GetDeviceStatus is the
// only operation that reports two of them, one per round trip.
type Action string

const (
	ActionLogin           Action = "LOGIN"
	ActionLogout          Action = "LOGOUT"
	ActionGetDeviceInfo   Action = "GET_DEVICE_INFO"
	ActionGetDeviceStatus Action = "GET_DEVICE_STATUS"
	ActionSetDeviceStatus Action = "SET_DEVICE_STATUS"
	ActionGetZoneStatus   Action = "GET_ZONE_STATUS"
	ActionSync            Action = "SYNC"
	ActionHostUnreachable Action = "HOST_UNREACHABLE"
)

// Result is the uniform envelope returned by every portal operation.
// Info is nil whenever Success is false.
type Result[T any] struct {
	Actions []Action
	Success bool
	Info    *T
}

// NoInfo is the payload of operations that only report success.
type NoInfo = struct{}

func success[T any](info T, actions ...Action) Result[T] {
	return Result[T]{Actions: actions, Success: true, Info: &info}
}

func failure[T any](actions ...Action) Result[T] {
	return Result[T]{Actions: actions, Success: false}
}

var (
	// the reachability probe gave up before any HTTP was attempted
	ErrHostUnreachable = errors.New("portal host is unreachable")
	// the sign-in exchange did not land on the summary page
	ErrAuthenticationFailed = errors.New("failed to sign in to the portal")
	// the portal silently bounced a signed-in call back to its login
	// page, the session cookie is no longer valid
	ErrSessionExpired = errors.New("portal session is no longer authenticated")
	// the endpoint was reached but its payload could not be parsed
	ErrUnexpectedResponse = errors.New("portal response has an unexpected shape")
)
