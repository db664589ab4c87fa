// ABOUTME: Idempotently provisions the YYYY/MM photo folder under the base path
// ABOUTME: Reads each segment first and creates missing ones under the parent's children
package upload

import (
	"context"
	"fmt"
	"time"

	"github.com/iTRMAutomation/mlc-village-recon-tool/config"
	"github.com/iTRMAutomation/mlc-village-recon-tool/graph"
	"go.uber.org/zap"
)

// FolderAPI reads and creates drive folders.
type FolderAPI interface {
	GetItemByPath(ctx context.Context, driveID, path string) (*graph.DriveItem, error)
	CreateFolder(ctx context.Context, driveID, parentID, name string) (*graph.DriveItem, error)
}

// Provisioner creates the dated folder hierarchy photos are placed in.
type Provisioner struct {
	api FolderAPI
	loc *time.Location
	log *zap.Logger
}

// NewProvisioner creates a Provisioner partitioning by month in loc.
func NewProvisioner(api FolderAPI, loc *time.Location, logger *zap.Logger) *Provisioner {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provisioner{api: api, loc: loc, log: logger}
}

// Partition returns the YYYY/MM folder suffix for ts in the operational zone.
func (p *Provisioner) Partition(ts time.Time) string {
	return ts.In(p.loc).Format("2006/01")
}

// EnsureFolder makes sure basePath/YYYY/MM exists in the drive and returns the YYYY/MM
// suffix. Existing segments are left alone, so repeated calls for the same month create
// nothing.
func (p *Provisioner) EnsureFolder(ctx context.Context, driveID, basePath string, ts time.Time) (string, error) {
	partition := p.Partition(ts)
	full := config.CleanFolderPath(basePath + "/" + partition)

	var acc, parentID string
	for _, segment := range splitPath(full) {
		if acc == "" {
			acc = segment
		} else {
			acc = acc + "/" + segment
		}

		item, err := p.api.GetItemByPath(ctx, driveID, acc)
		if err == nil && item != nil && item.ID != "" {
			parentID = item.ID
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}

		if err != nil && !graph.IsNotFound(err) {
			p.log.Warn("folder lookup failed; creating it anyway", zap.String("path", acc), zap.Error(err))
		} else {
			p.log.Debug("creating folder", zap.String("path", acc), zap.Bool("root", parentID == ""))
		}
		created, err := p.api.CreateFolder(ctx, driveID, parentID, segment)
		if err != nil {
			return "", fmt.Errorf("failed to create folder %s: %w", acc, err)
		}
		parentID = created.ID
	}

	return partition, nil
}
