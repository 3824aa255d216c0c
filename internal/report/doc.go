// Package report renders scan results in multiple output formats.
//
// Three writers are provided:
//   - TextWriter: human-readable terminal output (default)
//   - JSONWriter: machine-readable output for tool integration
//   - MarkdownWriter: GitHub-flavored Markdown for documentation
//
// All writers implement the Writer interface and accept a
// *model.ScanReport. MultiWriter fans a report out to several writers,
// e.g. terminal plus file.
package report
