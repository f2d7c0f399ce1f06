package errors

// Error code ranges:
// E01xx: lexical errors
// E02xx: parse errors
// E03xx: semantic errors
// E09xx: internal errors (should never surface to a user)

const (
	ErrorIllegalCharacter  = "E0100"
	ErrorUnterminatedToken = "E0101"

	ErrorUnexpectedToken = "E0200"
	ErrorExpectedToken   = "E0201"
	ErrorInvalidLiteral  = "E0202"

	ErrorUndefinedIdentifier = "E0300"
	ErrorDuplicateName       = "E0301"
	ErrorLocalNotAtTopLevel  = "E0302"
	ErrorLoopControlOutside  = "E0303"
	ErrorReturnMismatch      = "E0304"
	ErrorBadCondition        = "E0305"
	ErrorArityMismatch       = "E0306"

	ErrorInternal = "E0900"
)
