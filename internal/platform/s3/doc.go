// Package s3 backs up hearth run state to an S3-compatible bucket.
//
// It targets self-hosted object stores (MinIO, Garage) as well as cloud
// S3: path-style addressing, static credentials, and tolerant bucket
// creation against services that do not return the exact SDK error types.
package s3
