// Package rules provides the built-in documentation checks.
//
// Pages are written in XWiki 2.1 syntax. The checks only need three
// constructs, matched with regular expressions:
//
//	[[image:ref||alt="text"]]          image syntax
//	{{image reference="ref"/}}         image macro
//	{{gallery}} ... {{/gallery}}       gallery macro
package rules
