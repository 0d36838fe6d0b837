// ABOUTME: Package documentation for conversation export
// ABOUTME: Describes the HTML and Markdown transcript formats

// Package transcript exports a settled conversation for sharing.
//
// WriteHTML produces a self-contained page with one section per message.
// Message text is treated as GitHub-flavored Markdown; raw HTML inside it is
// omitted rather than passed through. WriteMarkdown produces the plain
// Markdown equivalent. Both skip a message that is still streaming.
package transcript
