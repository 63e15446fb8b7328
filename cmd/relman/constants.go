package main

// Session shell settings.
const (
	SessionPrompt = "relman> "
	MaxLineLength = 64 * 1024
)

// Output formats of the list command.
var listFormats = []string{"table", "json"}

// Valid transfer formats; "auto" picks the codec from the file extension.
var transferFormats = []string{"auto", "json", "csv"}
