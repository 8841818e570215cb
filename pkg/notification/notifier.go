package notification

// NoticeType identifies which kind of message is being delivered.
type NoticeType string

const (
	OtpPasscodeNotice      NoticeType = "otp_passcode"
	MagicLinkNotice        NoticeType = "magic_link"
	VerificationCodeNotice NoticeType = "verification_code"
)

type NotificationData struct {
	To      string            // Recipient identifier (e.g., email address)
	Subject string            // Optional: Subject override
	Body    string            // The content or message to send
	Data    map[string]string // Additional metadata (e.g., the passcode or link)
}

type Notifier interface {
	Send(noticeType NoticeType, notification NotificationData) error
}
