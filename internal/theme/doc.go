// Package theme provides the stylesheets for the notification view.
// Bundled themes are embedded; a file of the same name in the user themes
// directory overrides them.
package theme
