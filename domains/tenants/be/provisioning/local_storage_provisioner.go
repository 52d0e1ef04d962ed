package provisioning

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/loomworks/agencydesk/domains/tenants/be/service"
)

// LocalStorageProvisioner keeps branding assets on the local filesystem under
// BasePath. Development substitute for the GCS provisioner.
type LocalStorageProvisioner struct {
	BasePath string
}

func NewLocalStorageProvisioner(basePath string) *LocalStorageProvisioner {
	if basePath == "" {
		panic("local storage provisioner requires basePath")
	}
	return &LocalStorageProvisioner{BasePath: basePath}
}

// Check ensures the branding prefix exists as a directory. Creating it is
// idempotent, so re-checking an already-provisioned tenant is a no-op.
func (p *LocalStorageProvisioner) Check(ctx context.Context, prefix string) (service.StorageProvisionResult, error) {
	if prefix == "" {
		return service.StorageProvisionResult{Ready: false}, fmt.Errorf("storage prefix is required")
	}

	fullPath := filepath.Join(p.BasePath, filepath.FromSlash(prefix))
	info, err := os.Stat(fullPath)
	switch {
	case err == nil:
		if !info.IsDir() {
			return service.StorageProvisionResult{Ready: false}, fmt.Errorf("branding prefix %s is not a directory", fullPath)
		}
		return service.StorageProvisionResult{Ready: true}, nil
	case os.IsNotExist(err):
		if err := os.MkdirAll(fullPath, 0o755); err != nil {
			return service.StorageProvisionResult{Ready: false}, fmt.Errorf("create branding prefix: %w", err)
		}
		return service.StorageProvisionResult{Ready: true}, nil
	default:
		return service.StorageProvisionResult{Ready: false}, fmt.Errorf("stat branding prefix: %w", err)
	}
}

var _ service.StorageProvisioner = (*LocalStorageProvisioner)(nil)
