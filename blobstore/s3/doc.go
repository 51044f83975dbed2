// Package s3 provides an Amazon S3 implementation of blobstore.Store.
//
// # Usage
//
//	cfg, err := config.LoadDefaultConfig(ctx)
//	if err != nil {
//	    return err
//	}
//	store := s3.NewStore(awss3.NewFromConfig(cfg), "my-bucket", "seqpack/")
//	id, err := checkpoint.NewStore(store).Save(ctx, packer.State())
//
// # Features
//
//   - Range reads for partial fetches
//   - CRC32C checksums on single-part puts
//   - Multipart uploads for large blobs
//   - Automatic pagination for listing
package s3
