// Package theme loads the CSS applied to fsclock overlay windows. Themes
// live in ~/.config/fsclock/themes/ or are bundled with the binary, and
// may @import partials. The loader appends the background tint rule that
// follows the user's background alpha.
package theme
