// Package component gives client resources a Start/Stop/Health lifecycle
// and a registry that starts them in order and stops them in reverse.
package component
