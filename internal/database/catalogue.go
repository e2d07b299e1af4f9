package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/middleware"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/models"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/permissions"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CatalogueResult summarizes what SyncCatalogue wrote.
type CatalogueResult struct {
	PermissionsCreated []string
	GroupsCreated      []string
	GrantsCreated      int
}

// SyncCatalogue makes the database catalogue match the permission registry. It is safe to
// run on every start: existing groups keep whatever grants an admin gave or revoked, a new
// group receives its full bundle, and a new permission is granted to the existing default
// groups whose bundle lists it.
func SyncCatalogue(ctx context.Context, db *gorm.DB) (*CatalogueResult, error) {
	result := &CatalogueResult{}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		permIDs := make(map[string]uint)
		newPerms := make(map[string]bool)

		for _, def := range permissions.All() {
			var perm models.Permission
			err := tx.Where("name = ?", def.Name).First(&perm).Error
			switch {
			case err == nil:
			case isRecordNotFound(err):
				perm = models.Permission{Name: def.Name, Category: def.Category, Description: def.Description}
				if err := tx.Create(&perm).Error; err != nil {
					return fmt.Errorf("create permission %s: %w", def.Name, err)
				}
				newPerms[def.Name] = true
				result.PermissionsCreated = append(result.PermissionsCreated, def.Name)
			default:
				return fmt.Errorf("load permission %s: %w", def.Name, err)
			}
			permIDs[def.Name] = perm.ID
		}

		for _, bundle := range permissions.DefaultGroups() {
			var group models.Group
			err := tx.Where("name = ?", bundle.Name).First(&group).Error
			created := false
			switch {
			case err == nil:
			case isRecordNotFound(err):
				group = models.Group{
					Name:        bundle.Name,
					Description: bundle.Description,
					IsDefault:   bundle.IsDefault && !hasDefaultGroup(tx),
					AutoApprove: bundle.AutoApprove,
				}
				if err := tx.Create(&group).Error; err != nil {
					return fmt.Errorf("create group %s: %w", bundle.Name, err)
				}
				created = true
				result.GroupsCreated = append(result.GroupsCreated, bundle.Name)
			default:
				return fmt.Errorf("load group %s: %w", bundle.Name, err)
			}

			for _, name := range bundle.Permissions {
				if !created && !newPerms[name] {
					continue
				}
				res := tx.Clauses(clause.OnConflict{DoNothing: true}).
					Create(&models.GroupPermission{GroupID: group.ID, PermissionID: permIDs[name]})
				if res.Error != nil {
					return fmt.Errorf("grant %s to %s: %w", name, bundle.Name, res.Error)
				}
				result.GrantsCreated += int(res.RowsAffected)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(result.PermissionsCreated) > 0 || len(result.GroupsCreated) > 0 {
		middleware.Logger.InfoContext(ctx, "Permission catalogue synced",
			slog.Any("permissions_created", result.PermissionsCreated),
			slog.Any("groups_created", result.GroupsCreated),
			slog.Int("grants_created", result.GrantsCreated),
		)
	}
	return result, nil
}

func hasDefaultGroup(tx *gorm.DB) bool {
	var count int64
	tx.Model(&models.Group{}).Where("is_default = ?", true).Count(&count)
	return count > 0
}
