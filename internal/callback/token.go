package callback

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"syndicate/internal/services"
)

// The external transcoder caps each user-metadata value at 256 characters,
// while continuation tokens can be longer. Tokens are therefore split across
// exactly three ordered fields and reassembled by concatenation.
const (
	FieldCapacity  = 256
	fieldCount     = 3
	MaxTokenLength = FieldCapacity * fieldCount
)

// User-metadata keys attached to every transcode submission.
const (
	MetadataTokenField1 = "ContinuationToken1"
	MetadataTokenField2 = "ContinuationToken2"
	MetadataTokenField3 = "ContinuationToken3"
	MetadataAssetID     = "AssetId"
	MetadataBucket      = "Bucket"
	MetadataKey         = "Key"
)

// NewToken mints an opaque continuation token. Tokens are never reused across
// sub-tasks.
func NewToken() string {
	var builder strings.Builder
	for i := 0; i < 4; i++ {
		builder.WriteString(strings.ReplaceAll(uuid.NewString(), "-", ""))
	}
	return builder.String()
}

// SplitToken slices a token into the three ordered metadata fields.
func SplitToken(token string) ([fieldCount]string, error) {
	var fields [fieldCount]string
	if token == "" {
		return fields, services.Wrap(services.ErrValidation, "callback", "split token", "token is empty", nil)
	}
	if len(token) > MaxTokenLength {
		return fields, services.Wrap(services.ErrValidation, "callback", "split token",
			fmt.Sprintf("token length %d exceeds capacity %d", len(token), MaxTokenLength), nil)
	}
	for i := 0; i < fieldCount; i++ {
		start := i * FieldCapacity
		if start >= len(token) {
			break
		}
		end := start + FieldCapacity
		if end > len(token) {
			end = len(token)
		}
		fields[i] = token[start:end]
	}
	return fields, nil
}

// MetadataFields returns the user-metadata entries encoding the token.
func MetadataFields(token string) (map[string]string, error) {
	fields, err := SplitToken(token)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		MetadataTokenField1: fields[0],
		MetadataTokenField2: fields[1],
		MetadataTokenField3: fields[2],
	}, nil
}

// TokenFromMetadata reassembles a continuation token from an event's user
// metadata. All three fields must be present; a missing field means the event
// was truncated and resolution must fail loudly rather than proceed with a
// partial token.
func TokenFromMetadata(metadata map[string]string) (string, error) {
	keys := [fieldCount]string{MetadataTokenField1, MetadataTokenField2, MetadataTokenField3}
	parts := make([]string, 0, fieldCount)
	for _, key := range keys {
		value, ok := metadata[key]
		if !ok {
			return "", services.Wrap(services.ErrValidation, "callback", "reassemble token",
				fmt.Sprintf("metadata field %s is absent", key), nil)
		}
		parts = append(parts, value)
	}
	token := strings.Join(parts, "")
	if token == "" {
		return "", services.Wrap(services.ErrValidation, "callback", "reassemble token", "token fields are empty", nil)
	}
	return token, nil
}
