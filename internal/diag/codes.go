package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Resolution
	ResolveFailed       Code = 1001
	ResolveCycle        Code = 1002
	ResolveLoaderFailed Code = 1003

	// Loader execution
	LoaderRunFailed   Code = 2001
	LoaderPitchFailed Code = 2002
	BridgeCallFailed  Code = 2003

	// Module build
	BuildFailed Code = 3001
	ParseFailed Code = 3002

	// Misuse of the pipeline API
	InternalError Code = 9001
)

func (c Code) String() string {
	return fmt.Sprintf("FORGE%04d", uint16(c))
}
