// Package deps checks the external programs the backend needs: the Python
// interpreter, the backend script, and FFmpeg.
package deps
