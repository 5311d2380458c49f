// Package blobstore uploads opaque objects to Amazon S3 or an S3-compatible
// service. It backs the admin backup upload; an empty bucket in Config
// disables it.
package blobstore
