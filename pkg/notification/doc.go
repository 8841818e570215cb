// Package notification delivers one-time passcodes, magic links, and
// password-reset codes for the in-memory identity provider and the demo.
//
// Delivery goes through the Notifier interface. EmailNotifier sends over
// SMTP via go-mail; SlogNotifier logs instead of sending, for development.
package notification
