// Package objectstore provides a filesystem-backed blob store addressed by
// obj://<container>/<key> URLs.
package objectstore
