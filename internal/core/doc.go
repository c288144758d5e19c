// Package core classifies the rows of a Sponsored Products bulk export.
//
// This package contains the extraction logic independent of any file format,
// UI or transport layer. It is used unchanged by the batch CLI, the HTTP API
// and the upload page.
//
// # Flow
//
// [Classify] takes one [Table] and returns a [Result] with five output tables:
//
//  1. The Entity column is located by header, falling back to column B.
//  2. Every row is tagged keyword, product targeting or product ad.
//  3. Product targeting rows are sub-classified by their targeting expression
//     (column AJ) into PAT, Category and Auto. These masks are independent; a
//     row can land in more than one table.
//  4. Each [Layout] copies its fixed column letters for the selected rows.
//
// # Column Map
//
// [Layouts] is a static table of output key, sheet name, row filter and
// column letters. Column letters use spreadsheet numbering ([ColumnIndex]).
//
// # Error Handling
//
// Fatal conditions are reported with sentinel errors ([ErrInvalidColumnLetter],
// [ErrColumnOutOfRange], [ErrEntityColumnNotFound]) and nothing is returned.
// A missing targeting column is not fatal; it is recorded in
// [Diagnostics.Warnings]. [MapError] converts any error into a [UserMessage]
// with a support code.
package core
