package tracker

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"jobtracker/internal/errcode"
)

const msgDuplicateCompany = "Trying to create duplicate company."

// CompanyInput is the write shape of a Company. Tags are names, resolved per owner.
type CompanyInput struct {
	Name      Optional[string]   `json:"name"`
	CountryID Optional[uint]     `json:"country_id"`
	Link      Optional[string]   `json:"link"`
	Tags      Optional[TagNames] `json:"tags"`
}

type CompanyService struct {
	db *gorm.DB
}

func NewCompanyService(db *gorm.DB) *CompanyService {
	return &CompanyService{db: db}
}

func (s *CompanyService) Create(ctx context.Context, ownerID uint, in CompanyInput) (*CompanyView, error) {
	errs := &errcode.ValidationError{}
	name := checkName(errs, "name", in.Name, true)
	link := checkLink(errs, "link", in.Link)
	tagNames := checkTagNames(errs, "tags", in.Tags)

	company := Company{OwnerID: ownerID, Name: name, Link: link}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if in.CountryID.Present() {
			country, err := checkOwnedRef[Country](tx, ownerID, in.CountryID.Value, "country_id", errs)
			if err != nil {
				return err
			}
			if country != nil {
				company.CountryID = &country.ID
			}
		}
		if !errs.Has("name") {
			if err := ensureUniqueName[Company](tx, ownerID, 0, name, msgDuplicateCompany, errs); err != nil {
				return err
			}
		}
		if err := errs.Err(); err != nil {
			return err
		}

		if err := tx.Omit(clause.Associations).Create(&company).Error; err != nil {
			return duplicateAsInvalid(fmt.Errorf("create company: %w", err), msgDuplicateCompany)
		}
		tags, err := resolveTags(tx, ownerID, tagNames)
		if err != nil {
			return err
		}
		return replaceTags(tx, &company, tags)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, ownerID, company.ID)
}

func (s *CompanyService) List(ctx context.Context, ownerID uint) ([]CompanyView, error) {
	var companies []Company
	err := preloadCompany(s.db.WithContext(ctx), "").
		Scopes(ownedBy(ownerID)).
		Order("id").
		Find(&companies).Error
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	views := make([]CompanyView, 0, len(companies))
	for i := range companies {
		views = append(views, *newCompanyView(&companies[i]))
	}
	return views, nil
}

func (s *CompanyService) Get(ctx context.Context, ownerID, id uint) (*CompanyView, error) {
	company, err := findOwned[Company](preloadCompany(s.db.WithContext(ctx), ""), ownerID, id)
	if err != nil {
		return nil, err
	}
	return newCompanyView(company), nil
}

// Update applies only the keys present in the payload.
func (s *CompanyService) Update(ctx context.Context, ownerID, id uint, in CompanyInput) (*CompanyView, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		company, err := findOwned[Company](tx, ownerID, id)
		if err != nil {
			return err
		}

		errs := &errcode.ValidationError{}
		name := checkName(errs, "name", in.Name, false)
		link := checkLink(errs, "link", in.Link)
		tagNames := checkTagNames(errs, "tags", in.Tags)

		switch {
		case in.CountryID.Null:
			company.CountryID = nil
		case in.CountryID.Set:
			country, err := checkOwnedRef[Country](tx, ownerID, in.CountryID.Value, "country_id", errs)
			if err != nil {
				return err
			}
			if country != nil {
				company.CountryID = &country.ID
			}
		}
		if in.Name.Set && !errs.Has("name") {
			if err := ensureUniqueName[Company](tx, ownerID, id, name, msgDuplicateCompany, errs); err != nil {
				return err
			}
		}
		if err := errs.Err(); err != nil {
			return err
		}

		if in.Name.Set {
			company.Name = name
		}
		if in.Link.Set {
			company.Link = link
		}
		if err := tx.Omit(clause.Associations).Save(company).Error; err != nil {
			return duplicateAsInvalid(fmt.Errorf("update company: %w", err), msgDuplicateCompany)
		}
		if !in.Tags.Present() {
			return nil
		}
		tags, err := resolveTags(tx, ownerID, tagNames)
		if err != nil {
			return err
		}
		return replaceTags(tx, company, tags)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, ownerID, id)
}

// Delete removes the company together with its applications and their interviews.
func (s *CompanyService) Delete(ctx context.Context, ownerID, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		company, err := findOwned[Company](tx, ownerID, id)
		if err != nil {
			return err
		}
		return deleteCompany(tx, company)
	})
}
