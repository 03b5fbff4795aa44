package awslogs

import (
	"errors"
	"fmt"
)

// Decoding stages reported by DecodeError.
const (
	StageInput     = "input"
	StageBase64    = "base64"
	StageGzip      = "gzip"
	StageUTF8      = "utf8"
	StageJSON      = "json"
	StageStructure = "structure"
)

// ErrDecode matches every *DecodeError via errors.Is.
var ErrDecode = errors.New("awslogs decode failed")

// DecodeError reports an undecodable invocation payload.
type DecodeError struct {
	Stage string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("awslogs decode (%s): %v", e.Stage, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Is reports whether target is ErrDecode.
func (e *DecodeError) Is(target error) bool { return target == ErrDecode }
