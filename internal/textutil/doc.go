// Package textutil turns free-form titles into filesystem-safe names.
//
// Slug folds accents away with Unicode decomposition before filtering, so
// "Café Science" becomes "cafe_science" rather than losing the letter.
package textutil
