package errors

import "fmt"

var (
	ErrWorkerPanic       = fmt.Errorf("worker panic")
	ErrRoomFull          = fmt.Errorf("room is full")
	ErrAlreadyIdentified = fmt.Errorf("session already identified")
	ErrNotIdentified     = fmt.Errorf("session not identified")
	ErrSessionClosed     = fmt.Errorf("session closed")
	ErrUnknownEnvelope   = fmt.Errorf("unknown envelope type")
	ErrBadFrameVersion   = fmt.Errorf("unsupported frame version")
	ErrFrameTooLarge     = fmt.Errorf("frame exceeds maximum size")
)
