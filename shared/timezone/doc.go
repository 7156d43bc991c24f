// Package timezone renders instants in the hotel's local time.
//
// Booking dates are stored and compared as unix seconds, so the timezone
// never affects conflict checks or night counts. It only decides how
// check-in and check-out are displayed, e.g. in guest notifications:
//
//	timezone.FormatUnix(booking.DateStart, "Mon 02 Jan 2006 15:04")
//
// The location comes from APP_TIMEZONE (an IANA name such as "Asia/Jakarta")
// and falls back to UTC when unset or unknown.
package timezone
