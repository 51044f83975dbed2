// Package minio provides a blobstore.Store implementation using the MinIO client.
//
// It works with MinIO and other S3-compatible storage (Ceph, SeaweedFS, Garage)
// and needs no AWS dependencies, which suits on-premise training clusters.
//
// # Basic Usage
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := minioblob.NewStore(client, "my-bucket", "seqpack/")
//	g := collective.NewStoreGatherer(store, "run-42", rank, world)
package minio
