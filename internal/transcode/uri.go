package transcode

import "strings"

// Object URIs exchanged with the external transcoder use a store scheme so
// the service can address buckets it does not mount locally.
const uriScheme = "store://"

// ObjectURI renders a bucket/key pair as a store URI.
func ObjectURI(bucket, key string) string {
	return uriScheme + bucket + "/" + key
}

// DestinationPrefix is the output location for an asset's renditions.
func DestinationPrefix(bucket, assetID string) string {
	return uriScheme + bucket + "/" + assetID + "/"
}

// StripBucketPrefix converts a reported output URI back into an object key
// within bucket. It returns false when the URI points elsewhere.
func StripBucketPrefix(uri, bucket string) (string, bool) {
	prefix := uriScheme + bucket + "/"
	if !strings.HasPrefix(uri, prefix) {
		return "", false
	}
	return strings.TrimPrefix(uri, prefix), true
}
