// Package collective implements the all-gather rendezvous used to reconcile
// per-worker decisions in multi-worker training.
//
// Every worker contributes one float64 per round and receives the values of
// all workers indexed by rank. Min reduces a gather to its minimum, which is
// how workers agree on a common packing ratio.
//
// # Implementations
//
//   - Group: in-process rendezvous for goroutine workers on one host
//   - StoreGatherer: rendezvous over any blobstore.Store (shared directory, S3, MinIO)
//   - dynamo.Gatherer: rendezvous over a DynamoDB table
//
// # Usage
//
//	g, err := collective.NewStoreGatherer(store, "run-42", rank, world)
//	if err != nil {
//	    return err
//	}
//	ratio, err := collective.Min(ctx, g, localRatio)
//
// A gather blocks until every rank has contributed or the context is done.
// Nothing is retried: any failure is reported as ErrCollective.
package collective
