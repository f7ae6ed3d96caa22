package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionActive      ErrCode = "SESSION_ALREADY_ACTIVE"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden           ErrCode = "FORBIDDEN"
	ErrCandidateAccessOnly ErrCode = "CANDIDATE_ACCESS_ONLY"
	ErrAdminAccessOnly     ErrCode = "ADMIN_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation ErrCode = "VALIDATION_ERROR"
	ErrInvalidID  ErrCode = "INVALID_ID"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Session-specific ──────────────────────────────────────────────
	ErrTestNotFound       ErrCode = "TEST_NOT_FOUND"
	ErrNoSections         ErrCode = "NO_SECTIONS"
	ErrSessionNotFound    ErrCode = "SESSION_NOT_FOUND"
	ErrSessionFinalized   ErrCode = "SESSION_FINALIZED"
	ErrSectionNotLoaded   ErrCode = "SECTION_NOT_LOADED"
	ErrInvalidAnswerEdit  ErrCode = "INVALID_ANSWER_EDIT"
	ErrSubmitFailed       ErrCode = "SUBMIT_FAILED"
	ErrResultsUnavailable ErrCode = "RESULTS_UNAVAILABLE"

	// ─── Capture ───────────────────────────────────────────────────────
	ErrFileRequired     ErrCode = "FILE_REQUIRED"
	ErrUnsupportedFile  ErrCode = "UNSUPPORTED_FILE_TYPE"
	ErrFileTooLarge     ErrCode = "FILE_TOO_LARGE"
	ErrCaptureNotActive ErrCode = "CAPTURE_NOT_ACTIVE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Invalid username or password."
	case ErrSessionActive:
		return "You are already logged in on another device."
	case ErrSessionInvalidated:
		return "Your session has ended. Please log in again."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid or expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrCandidateAccessOnly:
		return "This resource is restricted to candidates."
	case ErrAdminAccessOnly:
		return "This resource is restricted to administrators."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid identifier format."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "The resource already exists."

	// ─── Session-specific ──────────────────────────────────────────────
	case ErrTestNotFound:
		return "This test does not exist or is not available."
	case ErrNoSections:
		return "This test has no sections configured."
	case ErrSessionNotFound:
		return "No active exam session was found."
	case ErrSessionFinalized:
		return "This exam session has already been finalized."
	case ErrSectionNotLoaded:
		return "The current section failed to load. Please retry."
	case ErrInvalidAnswerEdit:
		return "The answer edit is not valid for this question."
	case ErrSubmitFailed:
		return "Section submission failed. Your answers are kept; please retry."
	case ErrResultsUnavailable:
		return "Results are not available yet."

	// ─── Capture ───────────────────────────────────────────────────────
	case ErrFileRequired:
		return "A file upload is required."
	case ErrUnsupportedFile:
		return "The file type is not supported."
	case ErrFileTooLarge:
		return "The file exceeds the size limit."
	case ErrCaptureNotActive:
		return "No capture recording is active for this session."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
