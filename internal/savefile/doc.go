// Package savefile stores downloaded payloads in the downloads directory.
//
// Names are sanitized with textutil and never overwrite an existing file:
// a clash yields "name (1).ext", "name (2).ext", and so on. All filesystem
// access goes through afero so tests can run against a memory filesystem.
package savefile
