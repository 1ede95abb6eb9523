// Package sink writes response bodies to disk with optional integrity
// checks and progress reporting, and fans requests out over a shared
// client.
//
// # Single Object
//
// [Object] streams an object to a temporary file alongside the
// destination path, then atomically renames it on success:
//
//	err := sink.Object(ctx, c, d, "/tmp/cat.jpg", logger,
//		sink.WithETag(etag),
//		sink.WithProgress(),
//	)
//
// [File] does the same for any function that writes a body to an
// io.Writer and returns a status code.
//
// # Many Objects
//
// A [Queue] downloads many objects over one client and bounds how many
// requests run at once:
//
//	q, err := sink.NewQueue(c, 4, logger)
//	if err != nil {
//		return err
//	}
//	for _, d := range descriptors {
//		q.Object(ctx, d, dest(d), sink.WithSkipExisting())
//	}
//	err = q.Wait() // every failure as an *ObjectError
package sink
