package feed

import "errors"

var (
	ErrUnknownEncoding = errors.New("unknown feed encoding")
	ErrUnknownAction   = errors.New("unknown command action")
	ErrMissingField    = errors.New("command field missing")
	ErrNoFrameSource   = errors.New("feed needs a frame source")
)
