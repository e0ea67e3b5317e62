// Package errors provides structured error handling for bot operations.
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Registry errors
	CodeNotFound      Code = "NOT_FOUND"
	CodeAlreadyExists Code = "ALREADY_EXISTS"

	// Permission errors
	CodePermissionDenied Code = "PERMISSION_DENIED"
	CodeTargetIsOwner    Code = "TARGET_IS_OWNER"
	CodeTargetIsBot      Code = "TARGET_IS_BOT"

	// Lifecycle errors
	CodeQuotaExceeded   Code = "QUOTA_EXCEEDED"
	CodeNoCapacity      Code = "NO_CAPACITY"
	CodeCategoryUnknown Code = "CATEGORY_UNKNOWN"
	CodeCategoryUnset   Code = "CATEGORY_UNSET"
	CodeConfirmExpired  Code = "CONFIRM_EXPIRED"

	// Platform errors
	CodePlatform Code = "PLATFORM_ERROR"
)

// userMessages maps codes to the reply text shown to the invoking member.
// Codes without an entry fall back to a generic message so internal detail
// never leaks into the channel.
var userMessages = map[Code]string{
	CodeNotFound:         "Could not find channel data",
	CodeAlreadyExists:    "This channel is already registered",
	CodePermissionDenied: "You can only manage your own channel",
	CodeTargetIsOwner:    "You can't change the channel owner's permissions",
	CodeTargetIsBot:      "You can't change a bot's permissions",
	CodeQuotaExceeded:    "You can only have a max of two channels across all categories!",
	CodeNoCapacity:       "All archive categories are full",
	CodeCategoryUnknown:  "No such category",
	CodeCategoryUnset:    "The channel is not yet assigned a category. Please use /category to select one first!",
	CodeConfirmExpired:   "This confirmation has expired. Please run the command again",
}

const genericUserMessage = "An error occurred"

// UserMessage returns the reply text for an error. Unknown errors and codes
// without a mapped message produce a generic reply.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if msg, ok := userMessages[GetCode(err)]; ok {
		return msg
	}
	return genericUserMessage
}
