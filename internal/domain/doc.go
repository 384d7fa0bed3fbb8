// Package domain holds the core models, repository interfaces, and sentinel
// errors shared by all layers. It has no dependencies on transport or storage.
package domain
