package tracker

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"jobtracker/internal/errcode"
)

// ownedBy restricts a query to rows belonging to ownerID. Every list and lookup goes through it.
func ownedBy(ownerID uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("owner_id = ?", ownerID)
	}
}

// findOwned loads row id for ownerID. A row owned by someone else is reported exactly like a missing one.
func findOwned[T any](db *gorm.DB, ownerID, id uint) (*T, error) {
	var row T
	err := db.Scopes(ownedBy(ownerID)).Where("id = ?", id).First(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, errcode.ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("load %T %d: %w", row, id, err)
	}
	return &row, nil
}

func invalidPK(id uint) string {
	return fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", id)
}

// checkOwnedRef is the write-time foreign key check. A missing and a foreign row yield the same field error.
func checkOwnedRef[T any](db *gorm.DB, ownerID, id uint, field string, errs *errcode.ValidationError) (*T, error) {
	row, err := findOwned[T](db, ownerID, id)
	if errors.Is(err, errcode.ErrNotFound) {
		errs.Add(field, invalidPK(id))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

// checkOwnedTags resolves tag ids, rejecting the whole set if any id is unknown to the owner.
func checkOwnedTags(db *gorm.DB, ownerID uint, ids []uint, field string, errs *errcode.ValidationError) ([]Tag, error) {
	if len(ids) == 0 {
		return []Tag{}, nil
	}
	var found []Tag
	if err := db.Scopes(ownedBy(ownerID)).Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, fmt.Errorf("load tags: %w", err)
	}
	byID := make(map[uint]Tag, len(found))
	for _, t := range found {
		byID[t.ID] = t
	}

	tags := make([]Tag, 0, len(ids))
	seen := make(map[uint]bool, len(ids))
	for _, id := range ids {
		t, ok := byID[id]
		if !ok {
			errs.Add(field, invalidPK(id))
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		tags = append(tags, t)
	}
	return tags, nil
}

// ensureUniqueName checks the (owner, name) constraint before writing. A clash is added to errs
// next to the other field errors; only a failed lookup is returned.
func ensureUniqueName[T any](tx *gorm.DB, ownerID, excludeID uint, name, msg string, errs *errcode.ValidationError) error {
	var count int64
	q := tx.Model(new(T)).Scopes(ownedBy(ownerID)).Where("name = ?", name)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return fmt.Errorf("check unique name: %w", err)
	}
	if count > 0 {
		errs.Add("name", msg)
	}
	return nil
}

// duplicateAsInvalid maps a unique index violation lost to a concurrent writer onto the same field error.
func duplicateAsInvalid(err error, msg string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errcode.Invalid("name", msg)
	}
	return err
}

// nullableRef resolves an optional foreign key. A null or absent key yields nil; a value must be owned.
func nullableRef[T any](db *gorm.DB, ownerID uint, value Optional[uint], field string, errs *errcode.ValidationError) (*uint, error) {
	if !value.Present() {
		return nil, nil
	}
	row, err := checkOwnedRef[T](db, ownerID, value.Value, field, errs)
	if err != nil || row == nil {
		return nil, err
	}
	id := value.Value
	return &id, nil
}
