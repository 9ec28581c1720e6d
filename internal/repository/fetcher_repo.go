package repository

import "context"

// PageFetcher defines the contract for retrieving the raw profile page of an identity.
type PageFetcher interface {
	// Fetch performs one outbound request and returns the page body.
	Fetch(ctx context.Context, identity string) (string, error)
}
