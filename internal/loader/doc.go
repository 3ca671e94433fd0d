// Package loader reads ComexStat style trade files into trade records.
//
// CSV files are delimited (";" by default), optionally ISO-8859-1 encoded,
// and may use either "1234.5" or Brazilian "1.234,5" number formatting.
// XLSX files are read from their first sheet (or a named one) with excelize.
// Header cells are cleaned and mapped to canonical columns by the trade
// package, so CO_ANO, "Ano" and "year" are all accepted.
//
// Rows that fail to parse or break record invariants are skipped and counted
// in a FileReport instead of aborting the load. Rows belonging to another
// state are dropped when Options.UF is set.
//
// Sources turn a set of files (FileSource) or a persisted store (StoreSource)
// into a single trade.Table. A FileSource may also scan a directory, taking
// the flow of each file from its name.
package loader
