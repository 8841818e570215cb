package formflow

// User-facing strings surfaced by the form controller. Kept in one place so
// embedders can audit or localize them.
const (
	MsgPasswordChangeSuccessful = "Update successful. Please log in with your new password."
	MsgVerificationCodeSent     = "Enter your email below to generate a verification code."
	MsgNewPasswordRequired      = "You need to create a new password. Please check your email for a verification code and then complete the form below."
	MsgFirstLogin               = "Please complete the fields below to finish account creation."
	MsgTooManyAttempts          = "Too many attempts. Please try again in 15 minutes."
	MsgPasswordUpdated          = "Your password has been updated successfully."
)

// Field labels for the rendering layer.
const (
	LabelEmail               = "Email Address"
	LabelPassword            = "Password"
	LabelForgotPassword      = "Forgot Password"
	LabelNewPassword         = "New Password"
	LabelCurrentPassword     = "Current Password"
	LabelConfirmNewPassword  = "Confirm New Password"
	LabelSubmit              = "Submit"
	LabelCode                = "Code"
	LabelClose               = "Close"
	LabelOtp                 = "Email me a One Time Password (OTP)"
	LabelOtpEnter            = "Enter the code that was just emailed to you."
	LabelMagicLink           = "Email me a magic link"
	LabelPasswordRequirement = "Must be at least 8 characters and contain a number, special character, uppercase and lowercase letter."
)
