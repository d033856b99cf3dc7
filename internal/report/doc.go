// Package report renders probe runs: a console observer that streams the
// check transcript while the run executes, and summary writers for text,
// JSON and Markdown output.
package report
