// Package dynamo implements a collective.Gatherer over an Amazon DynamoDB table.
//
// Each contribution is one item. A conditional put rejects a second write by
// the same rank, and consistent queries observe every committed contribution,
// so the rendezvous is safe on eventually consistent object stores too.
//
// Table schema:
//   - Partition key: run_id (string) - the run name and round number
//   - Sort key: rank (number)
//
// Create the table with:
//
//	aws dynamodb create-table \
//	  --table-name seqpack-rendezvous \
//	  --attribute-definitions AttributeName=run_id,AttributeType=S AttributeName=rank,AttributeType=N \
//	  --key-schema AttributeName=run_id,KeyType=HASH AttributeName=rank,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
package dynamo
