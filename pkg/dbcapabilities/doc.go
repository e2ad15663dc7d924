// Package dbcapabilities describes the source databases the archiver can read:
// canonical IDs, the aliases and URL schemes that map to them, default ports
// and system databases.
//
//	id, ok := dbcapabilities.ParseID("postgresql")
//	if ok && dbcapabilities.CanExport(id) {
//	    ...
//	}
package dbcapabilities
