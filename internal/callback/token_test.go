package callback_test

import (
	"errors"
	"strings"
	"testing"

	"syndicate/internal/callback"
	"syndicate/internal/services"
)

func TestTokenRoundTrip(t *testing.T) {
	lengths := []int{1, 255, 256, 257, 512, 640, 767, 768}
	for _, length := range lengths {
		token := strings.Repeat("t", length)
		fields, err := callback.SplitToken(token)
		if err != nil {
			t.Fatalf("SplitToken length %d: %v", length, err)
		}
		for i, field := range fields {
			if len(field) > callback.FieldCapacity {
				t.Fatalf("field %d exceeds capacity: %d", i+1, len(field))
			}
		}
		if joined := fields[0] + fields[1] + fields[2]; joined != token {
			t.Fatalf("round trip mismatch at length %d", length)
		}
	}
}

func TestSplitTokenRejectsOversized(t *testing.T) {
	if _, err := callback.SplitToken(strings.Repeat("t", callback.MaxTokenLength+1)); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := callback.SplitToken(""); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty token, got %v", err)
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	token := callback.NewToken()
	metadata, err := callback.MetadataFields(token)
	if err != nil {
		t.Fatalf("MetadataFields: %v", err)
	}
	if len(metadata) != 3 {
		t.Fatalf("expected exactly 3 token fields, got %d", len(metadata))
	}

	reassembled, err := callback.TokenFromMetadata(metadata)
	if err != nil {
		t.Fatalf("TokenFromMetadata: %v", err)
	}
	if reassembled != token {
		t.Fatal("reassembled token differs from original")
	}
}

func TestTokenFromMetadataRequiresAllFields(t *testing.T) {
	metadata, err := callback.MetadataFields(strings.Repeat("t", 640))
	if err != nil {
		t.Fatalf("MetadataFields: %v", err)
	}
	delete(metadata, callback.MetadataTokenField2)

	if _, err := callback.TokenFromMetadata(metadata); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for absent field, got %v", err)
	}
}

func TestNewTokenUnique(t *testing.T) {
	first := callback.NewToken()
	second := callback.NewToken()
	if first == second {
		t.Fatal("tokens must not repeat")
	}
	if len(first) > callback.MaxTokenLength {
		t.Fatalf("token too long: %d", len(first))
	}
}
