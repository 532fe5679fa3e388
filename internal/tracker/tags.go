package tracker

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"jobtracker/internal/database"
)

// Persistence models used by the services.
type (
	User        = database.User
	Country     = database.Country
	Tag         = database.Tag
	Company     = database.Company
	Resume      = database.Resume
	Application = database.Application
	Interview   = database.Interview
)

// resolveTags maps already validated names to the owner's Tag rows, creating missing ones.
// Duplicate names collapse to the first occurrence; the result keeps input order.
// The insert is ON CONFLICT DO NOTHING against the (owner_id, name) unique index,
// so two concurrent resolvers for the same name end up reading the same row.
func resolveTags(tx *gorm.DB, ownerID uint, names []string) ([]Tag, error) {
	tags := make([]Tag, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true

		candidate := Tag{OwnerID: ownerID, Name: name}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner_id"}, {Name: "name"}},
			DoNothing: true,
		}).Omit(clause.Associations).Create(&candidate).Error; err != nil {
			return nil, fmt.Errorf("upsert tag %q: %w", name, err)
		}

		var tag Tag
		if err := tx.Scopes(ownedBy(ownerID)).Where("name = ?", name).First(&tag).Error; err != nil {
			return nil, fmt.Errorf("load tag %q: %w", name, err)
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

// replaceTags swaps the whole tag set of model. An empty set clears every link.
func replaceTags(tx *gorm.DB, model any, tags []Tag) error {
	assoc := tx.Model(model).Association("Tags")
	if len(tags) == 0 {
		if err := assoc.Clear(); err != nil {
			return fmt.Errorf("clear tags: %w", err)
		}
		return nil
	}
	if err := assoc.Replace(tags); err != nil {
		return fmt.Errorf("replace tags: %w", err)
	}
	return nil
}

func orderTags(db *gorm.DB) *gorm.DB {
	return db.Order("tags.id")
}
