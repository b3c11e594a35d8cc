// Package exchange reads and writes the file formats bruch shares with
// spreadsheets and other devices.
//
// Article files come in JSON and CSV. Readers are lenient: they accept the
// German and alternate header or key names used by common spreadsheet
// exports, auto-detect the CSV separator, accept comma decimal prices, and
// silently drop rows without an EAN or a name. Writers produce the exact
// layouts the readers accept, so an export can always be imported again.
//
// Sales export as JSON or as a semicolon CSV for bookkeeping. Backups
// export as a single JSON document named after their date.
package exchange
