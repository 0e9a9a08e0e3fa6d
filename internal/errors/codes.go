// Package errors provides the domain error type shared by the funding core and
// the transport layer.
package errors

import "connectrpc.com/connect"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Identity errors
	CodeUnknownCaller      Code = "UNKNOWN_CALLER"
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	CodeUnauthorized       Code = "UNAUTHORIZED"

	// Proposal errors
	CodeAlreadyHasActiveProposal Code = "ALREADY_HAS_ACTIVE_PROPOSAL"
	CodeInvalidAmount            Code = "INVALID_AMOUNT"
	CodeInvalidDeadline          Code = "INVALID_DEADLINE"
	CodeNotFound                 Code = "NOT_FOUND"

	// Contribution errors
	CodeProposalNotOpen  Code = "PROPOSAL_NOT_OPEN"
	CodeProposalExpired  Code = "PROPOSAL_EXPIRED"
	CodeOverContribution Code = "OVER_CONTRIBUTION"

	// Settlement errors
	CodeNotReclaimable  Code = "NOT_RECLAIMABLE"
	CodeThresholdNotMet Code = "THRESHOLD_NOT_MET"
	CodeTransferFailed  Code = "TRANSFER_FAILED"
)

// Kind groups codes into the error taxonomy.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindState
	KindAuthorization
	KindNotFound
	KindExternal
)

// Kind returns the taxonomy class of the code.
func (c Code) Kind() Kind {
	switch c {
	case CodeInvalidAmount, CodeInvalidDeadline, CodeUnknownCaller:
		return KindValidation
	case CodeAlreadyHasActiveProposal, CodeProposalNotOpen, CodeProposalExpired,
		CodeOverContribution, CodeNotReclaimable, CodeThresholdNotMet:
		return KindState
	case CodeUnauthorized, CodeInvalidCredentials:
		return KindAuthorization
	case CodeNotFound:
		return KindNotFound
	case CodeTransferFailed:
		return KindExternal
	default:
		return KindInternal
	}
}

// ConnectCode maps domain codes to connect status codes.
func (c Code) ConnectCode() connect.Code {
	if c == CodeInvalidCredentials {
		return connect.CodeUnauthenticated
	}
	switch c.Kind() {
	case KindValidation:
		return connect.CodeInvalidArgument
	case KindState:
		return connect.CodeFailedPrecondition
	case KindAuthorization:
		return connect.CodePermissionDenied
	case KindNotFound:
		return connect.CodeNotFound
	case KindExternal:
		return connect.CodeUnavailable
	default:
		return connect.CodeInternal
	}
}
