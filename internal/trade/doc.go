// Package trade holds the foreign-trade domain model: the flat trade line
// record shared by exports and imports, column-name cleaning for ComexStat
// style files, and Table, an immutable columnar view over records backed by a
// gota DataFrame.
//
// Tables are never modified in place. Filter returns a derived Table and the
// analytics package only reads from them, so a Table can be shared freely
// between goroutines once built.
package trade
