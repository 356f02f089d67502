// Package shell holds the front-end view state and drives the backend client.
//
// A Shell owns the URL being inspected, the loaded metadata, the chosen
// download type and quality, download progress, and backend connectivity.
// Every metadata or download request takes a sequence number; when a response
// arrives after a newer request of the same kind was issued it is discarded
// and ErrSuperseded is returned, so a slow reply can never overwrite what the
// user is looking at.
//
// Front-ends (the terminal window and the browser bridge) read Snapshot or
// Subscribe to state changes; they never mutate State directly.
package shell
