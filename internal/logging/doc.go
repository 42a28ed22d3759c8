// Package logging writes log records to date-partitioned files and reads
// them back.
//
// A [Writer] appends each record to {directory}/{filename}.{YYYY-MM-DD}.log,
// where the date is the record's own UTC date, so a record stamped just
// before midnight lands in the earlier day's file even when it is written
// after midnight. Each write opens the file in append mode, writes one
// rendered line and closes it again; nothing is held open between writes.
//
// # Retention
//
// After every write the Writer lists the directory, keeps only names that
// carry a valid date, orders them by that date and deletes the oldest until
// [Writer.Files] remain. Other files in the directory are never touched.
// With compression enabled a file is gzipped to {name}.gz before it is
// removed; archives do not count against retention.
//
// # Thread Safety
//
// [Writer] is safe for concurrent use. Writers that share a directory, even
// ones owned by different providers, serialize their append and prune steps
// through the dirlock package.
//
// # Basic Usage
//
//	w, err := logging.NewWriter(logging.WriterConfig{
//	    Directory: "/var/log/myapp",
//	    Filename:  "myapp",
//	    Files:     7,
//	}, nil)
//	if err != nil {
//	    return err
//	}
//
//	token, err := r.Subscribe(router.AllTopics, w.Handler())
//
// # Reading Logs Back
//
//	entries, err := logging.ReadDir("/var/log/myapp", "myapp", nil)
//	if err != nil {
//	    return err
//	}
//	warnings := logging.FilterEntries(entries, logging.Filter{MinLevel: level.Warn})
//	err = logging.ExportEntries(os.Stdout, warnings, logging.ExportCSV, nil)
package logging
