// Package textutil provides filename sanitization and small string helpers.
//
// Names coming from the backend are arbitrary video titles. SanitizeFileName
// normalizes them to NFC so visually identical titles map to the same bytes,
// then removes characters that are unsafe on any of the supported desktop
// filesystems.
package textutil
