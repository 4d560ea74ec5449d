// Package tokens implements the brace-delimited substitution templates used
// for rendered file names and frame overlay text.
//
// Templates are validated against a closed vocabulary before any job runs so
// an unknown or positional field surfaces at submission time instead of in
// the middle of a render.
package tokens
