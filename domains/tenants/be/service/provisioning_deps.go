package service

import "context"

// StorageProvisioner validates that branding assets can be stored under a
// tenant's prefix. Check is idempotent; backends may create the prefix
// when the medium has directories.
type StorageProvisioner interface {
	Check(ctx context.Context, prefix string) (StorageProvisionResult, error)
}

type StorageProvisionResult struct {
	Ready bool
}
