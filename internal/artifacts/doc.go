// Package artifacts owns the on-disk output of a run.
//
// Each video gets its own directory under paths.output_dir holding the raw
// frames, annotated frames, per-frame analysis JSON, run metadata, the
// summary document, and the text report. Files are written atomically. A
// gofrs/flock lock in the directory keeps two runs from writing the same
// video at once. Load reads a previous run back for re-summarizing.
package artifacts
