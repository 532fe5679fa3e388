package tracker

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"jobtracker/internal/errcode"
)

const msgDuplicateTag = "Trying to create duplicate tag."

// TagInput is the write shape of a Tag.
type TagInput struct {
	Name Optional[string] `json:"name"`
}

// TagService manages tags directly; other services go through resolveTags.
type TagService struct {
	db *gorm.DB
}

func NewTagService(db *gorm.DB) *TagService {
	return &TagService{db: db}
}

// Create is get-or-create: naming an existing tag returns that tag.
func (s *TagService) Create(ctx context.Context, ownerID uint, in TagInput) (*TagView, error) {
	errs := &errcode.ValidationError{}
	name := checkName(errs, "name", in.Name, true)
	if err := errs.Err(); err != nil {
		return nil, err
	}

	var tags []Tag
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		tags, err = resolveTags(tx, ownerID, []string{name})
		return err
	})
	if err != nil {
		return nil, err
	}
	view := newTagView(tags[0])
	return &view, nil
}

func (s *TagService) List(ctx context.Context, ownerID uint) ([]TagView, error) {
	var tags []Tag
	if err := s.db.WithContext(ctx).Scopes(ownedBy(ownerID)).Order("id").Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return newTagViews(tags), nil
}

func (s *TagService) Get(ctx context.Context, ownerID, id uint) (*TagView, error) {
	tag, err := findOwned[Tag](s.db.WithContext(ctx), ownerID, id)
	if err != nil {
		return nil, err
	}
	view := newTagView(*tag)
	return &view, nil
}

// Update renames a tag. Renaming onto another existing tag name is rejected.
func (s *TagService) Update(ctx context.Context, ownerID, id uint, in TagInput) (*TagView, error) {
	var tag *Tag
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if tag, err = findOwned[Tag](tx, ownerID, id); err != nil {
			return err
		}

		errs := &errcode.ValidationError{}
		name := checkName(errs, "name", in.Name, false)
		if err := errs.Err(); err != nil {
			return err
		}
		if !in.Name.Set {
			return nil
		}
		if err := ensureUniqueName[Tag](tx, ownerID, id, name, msgDuplicateTag, errs); err != nil {
			return err
		}
		if err := errs.Err(); err != nil {
			return err
		}
		tag.Name = name
		if err := tx.Omit(clause.Associations).Save(tag).Error; err != nil {
			return duplicateAsInvalid(fmt.Errorf("update tag: %w", err), msgDuplicateTag)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	view := newTagView(*tag)
	return &view, nil
}

// Delete removes the tag and unlinks it from everything it was attached to.
func (s *TagService) Delete(ctx context.Context, ownerID, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tag, err := findOwned[Tag](tx, ownerID, id)
		if err != nil {
			return err
		}
		return deleteTag(tx, tag)
	})
}
