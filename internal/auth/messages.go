package auth

// GenericErrorMessage is shown for provider codes without a specific message.
const GenericErrorMessage = "Something went wrong. Please try again."

var messages = map[string]string{
	CodeEmailAlreadyInUse:    "An account with this email already exists.",
	CodeInvalidEmail:         "Please enter a valid email address.",
	CodeWeakPassword:         "Password must be at least 6 characters.",
	CodeUserNotFound:         "No account found with this email.",
	CodeWrongPassword:        "Incorrect password. Please try again.",
	CodeInvalidCredential:    "Invalid email or password.",
	CodeUserDisabled:         "This account has been disabled.",
	CodeTooManyRequests:      "Too many attempts. Please try again later.",
	CodeNetworkRequestFailed: "Network error. Please check your connection.",
	CodeOperationNotAllowed:  "This sign-in method is not enabled.",
}

// Message returns the user-facing text for a provider error code.
func Message(code string) string {
	if msg, ok := messages[code]; ok {
		return msg
	}
	return GenericErrorMessage
}
