// Package templates holds the templ components for the upload UI and the
// data they render. Regenerate the _templ.go files with `templ generate`.
package templates

import "github.com/a-h/templ"

// TableCount is one output sheet and its row count.
type TableCount struct {
	Sheet string
	Rows  int
}

// UploadPageData feeds the upload form.
type UploadPageData struct {
	DefaultSheet  string
	MaxFileSizeMB int64
	Error         *ErrorData
}

// ErrorData is a user-facing error.
type ErrorData struct {
	Message string
	Action  string
	Code    string
}

// ResultData feeds the result page.
type ResultData struct {
	RunID        string
	FileName     string
	Sheet        string
	TotalRows    int
	Summary      string
	Tables       []TableCount
	Warnings     []string
	DownloadName string
	// DownloadURL is normally a data: URI carrying the workbook.
	DownloadURL templ.SafeURL
}
