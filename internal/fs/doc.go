// Package fs is the file system seam under blobstore.LocalStore.
//
// LocalFS forwards to the os package. FaultyFS wraps another FileSystem and
// fails writes, syncs or renames of matching paths, which lets tests prove
// that an interrupted checkpoint write leaves the previous CURRENT intact:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule("CURRENT", fs.Fault{FailAfterBytes: -1, FailOnSync: true})
//	store := blobstore.NewLocalStoreWithFS(dir, ffs)
//
// Calls take no context.Context; they are short and cannot be interrupted at
// the syscall level anyway.
package fs
