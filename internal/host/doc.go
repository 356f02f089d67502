// Package host owns the application window and ties the backend supervisor's
// lifecycle to it.
//
// Ready starts the supervisor and opens the first window after a short delay.
// Closing the window terminates the backend; on every platform except darwin
// the host then quits. Activate reopens a window when none is showing, and
// Quit stops the supervisor and closes whatever is still open.
//
// Window implementations live behind the Window interface. The browser window
// in this package serves packaged content from a loopback listener that also
// proxies /api/ to the backend; the terminal window lives in cmd/ytdesk.
package host
