// Package capture implements the interactive credential capture flow on the
// user's machine: opening a real browser window for login, extracting the
// session storage state once the user confirms, persisting it locally with
// an atomic write, and handing it to the backend credential service.
//
// The browser is always closed when a capture ends, whether it was
// confirmed, cancelled, or failed. Raw session material never appears in
// logs or status output.
package capture
