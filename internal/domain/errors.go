package domain

import "fmt"

// Error codes surfaced to clients in ActionRequestResponse.
const (
	CodeInvalidParameters  = "INVALID_PARAMETERS"
	CodeActionAlreadyUsed  = "ACTION_ALREADY_USED"
	CodeBonusActionUsed    = "BONUS_ACTION_ALREADY_USED"
	CodeReactionUsed       = "REACTION_ALREADY_USED"
	CodeActionRestricted   = "ACTION_RESTRICTED_BY_CONDITION"
	CodeStateConflict      = "STATE_CONFLICT"
	CodeGMRejected         = "GM_REJECTED"
	CodeEncounterNotFound  = "ENCOUNTER_NOT_FOUND"
	CodeEncounterNotActive = "ENCOUNTER_NOT_ACTIVE"
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeInternalError      = "INTERNAL_ERROR"
)

// ActionError is a structured, client-facing error with a stable code.
type ActionError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewActionError creates an ActionError with a formatted message.
func NewActionError(code, format string, args ...any) *ActionError {
	return &ActionError{Code: code, Message: fmt.Sprintf(format, args...)}
}
