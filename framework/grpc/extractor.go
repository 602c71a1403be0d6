package jwtgrpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/metadata"

	"github.com/jwtverifier/go-okta-jwt-middleware/core"
)

// TokenExtractor defines a function that extracts a token from a call.
type TokenExtractor func(ctx context.Context) (string, error)

// ErrMalformedAuthMetadata is returned for authorization metadata that is not
// of the form "Bearer <token>".
var ErrMalformedAuthMetadata = errors.New("authorization metadata format must be 'Bearer {token}'")

// MetadataTokenExtractor extracts the token from the "authorization" metadata field.
func MetadataTokenExtractor(ctx context.Context) (string, error) {
	value := firstMetadataValue(ctx, "authorization")
	if value == "" {
		return "", nil // No JWT provided.
	}

	token := core.ParseBearer(value)
	if token == "" {
		return "", ErrMalformedAuthMetadata
	}
	return token, nil
}

// MetadataFieldTokenExtractor extracts the raw token from a specified metadata field.
func MetadataFieldTokenExtractor(field string) TokenExtractor {
	return func(ctx context.Context) (string, error) {
		return firstMetadataValue(ctx, field), nil
	}
}

// MultiTokenExtractor runs multiple TokenExtractors and returns the first
// non-empty token.
func MultiTokenExtractor(extractors ...TokenExtractor) TokenExtractor {
	return func(ctx context.Context) (string, error) {
		for _, ex := range extractors {
			token, err := ex(ctx)
			if err != nil {
				return "", err
			}
			if token != "" {
				return token, nil
			}
		}
		return "", nil
	}
}

func firstMetadataValue(ctx context.Context, field string) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "" // No metadata, so no JWT.
	}
	values := md.Get(field)
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
