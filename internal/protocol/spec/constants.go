// Package spec holds the static AMQP 0-9-1 wire constants and the
// class/method identifier table.
package spec

// Protocol header literal sent by a client before any frame.
const ProtocolLiteral = "AMQP"

// Frame types.
const (
	FrameMethod    uint8 = 1
	FrameHeader    uint8 = 2
	FrameBody      uint8 = 3
	FrameHeartbeat uint8 = 8
)

// FrameEnd terminates every standard frame.
const FrameEnd uint8 = 0xCE

const FrameMinSize = 4096

// Class identifiers.
const (
	ClassConnection uint16 = 10
	ClassChannel    uint16 = 20
	ClassExchange   uint16 = 40
	ClassQueue      uint16 = 50
	ClassBasic      uint16 = 60
	ClassConfirm    uint16 = 85
	ClassTx         uint16 = 90
)

// Reply codes.
const (
	ReplySuccess       = 200
	ContentTooLarge    = 311
	NoConsumers        = 313
	ConnectionForced   = 320
	InvalidPath        = 402
	AccessRefused      = 403
	NotFound           = 404
	ResourceLocked     = 405
	PreconditionFailed = 406
	FrameError         = 501
	SyntaxError        = 502
	CommandInvalid     = 503
	ChannelError       = 504
	UnexpectedFrame    = 505
	ResourceError      = 506
	NotAllowed         = 530
	NotImplemented     = 540
	InternalError      = 541
)

var replyText = map[uint16]string{
	ReplySuccess:       "reply-success",
	ContentTooLarge:    "content-too-large",
	NoConsumers:        "no-consumers",
	ConnectionForced:   "connection-forced",
	InvalidPath:        "invalid-path",
	AccessRefused:      "access-refused",
	NotFound:           "not-found",
	ResourceLocked:     "resource-locked",
	PreconditionFailed: "precondition-failed",
	FrameError:         "frame-error",
	SyntaxError:        "syntax-error",
	CommandInvalid:     "command-invalid",
	ChannelError:       "channel-error",
	UnexpectedFrame:    "unexpected-frame",
	ResourceError:      "resource-error",
	NotAllowed:         "not-allowed",
	NotImplemented:     "not-implemented",
	InternalError:      "internal-error",
}

// ReplyName returns the symbolic name of a reply code.
func ReplyName(code uint16) (string, bool) {
	name, ok := replyText[code]
	return name, ok
}
