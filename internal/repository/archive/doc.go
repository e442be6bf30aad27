// Package archive packs a directory into a zip file.
//
// Entries are written in lexical order with slash-separated relative names.
// Symbolic links are resolved the way a package install expects: links to
// files store the target's content, links to directories become empty
// directory entries.
package archive
