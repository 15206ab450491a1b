// Package store persists the user's overlay settings (visibility and layer
// opacities) as JSON and watches files for external changes.
package store
