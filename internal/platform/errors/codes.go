// Package errors provides structured domain errors with machine-readable codes.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Registry errors
	CodeCreatureNotRegistered Code = "CREATURE_NOT_REGISTERED"
	CodeCreatureNotFound      Code = "CREATURE_NOT_FOUND"
	CodeCreatureAmbiguous     Code = "CREATURE_AMBIGUOUS"
	CodeInvalidCategory       Code = "INVALID_CATEGORY"

	// Skin errors
	CodeSkinOutOfRange Code = "SKIN_OUT_OF_RANGE"
	CodeNoSkinsForType Code = "NO_SKINS_FOR_TYPE"

	// Command errors
	CodeUnknownCommand      Code = "UNKNOWN_COMMAND"
	CodeInvalidArgument     Code = "INVALID_ARGUMENT"
	CodeCommandNotAvailable Code = "COMMAND_NOT_AVAILABLE"

	// Session errors
	CodeSessionNotLoaded Code = "SESSION_NOT_LOADED"
	CodeNotAuthoritative Code = "NOT_AUTHORITATIVE"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeInvalidCategory,
		CodeSkinOutOfRange,
		CodeInvalidArgument,
		CodeCreatureAmbiguous:
		return codes.InvalidArgument

	// FailedPrecondition - state doesn't allow operation
	case CodeCreatureNotRegistered,
		CodeNoSkinsForType,
		CodeSessionNotLoaded,
		CodeCommandNotAvailable:
		return codes.FailedPrecondition

	// NotFound - resource doesn't exist
	case CodeCreatureNotFound,
		CodeNotFound:
		return codes.NotFound

	case CodeUnknownCommand:
		return codes.Unimplemented

	case CodeNotAuthoritative:
		return codes.PermissionDenied

	default:
		return codes.Internal
	}
}
