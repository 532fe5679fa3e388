package tracker

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"jobtracker/internal/errcode"
)

const msgDuplicateCountry = "Trying to create duplicate country."

// CountryInput is the write shape of a Country.
type CountryInput struct {
	Name Optional[string] `json:"name"`
}

// CountryService manages the owner's countries.
type CountryService struct {
	db *gorm.DB
}

func NewCountryService(db *gorm.DB) *CountryService {
	return &CountryService{db: db}
}

func (s *CountryService) Create(ctx context.Context, ownerID uint, in CountryInput) (*CountryView, error) {
	errs := &errcode.ValidationError{}
	name := checkName(errs, "name", in.Name, true)
	if err := errs.Err(); err != nil {
		return nil, err
	}

	country := Country{OwnerID: ownerID, Name: name}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureUniqueName[Country](tx, ownerID, 0, name, msgDuplicateCountry, errs); err != nil {
			return err
		}
		if err := errs.Err(); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(&country).Error; err != nil {
			return duplicateAsInvalid(fmt.Errorf("create country: %w", err), msgDuplicateCountry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return newCountryView(&country), nil
}

func (s *CountryService) List(ctx context.Context, ownerID uint) ([]CountryView, error) {
	var countries []Country
	if err := s.db.WithContext(ctx).Scopes(ownedBy(ownerID)).Order("id").Find(&countries).Error; err != nil {
		return nil, fmt.Errorf("list countries: %w", err)
	}
	views := make([]CountryView, 0, len(countries))
	for i := range countries {
		views = append(views, *newCountryView(&countries[i]))
	}
	return views, nil
}

func (s *CountryService) Get(ctx context.Context, ownerID, id uint) (*CountryView, error) {
	country, err := findOwned[Country](s.db.WithContext(ctx), ownerID, id)
	if err != nil {
		return nil, err
	}
	return newCountryView(country), nil
}

func (s *CountryService) Update(ctx context.Context, ownerID, id uint, in CountryInput) (*CountryView, error) {
	var country *Country
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if country, err = findOwned[Country](tx, ownerID, id); err != nil {
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
		if err := ensureUniqueName[Country](tx, ownerID, id, name, msgDuplicateCountry, errs); err != nil {
			return err
		}
		if err := errs.Err(); err != nil {
			return err
		}
		country.Name = name
		if err := tx.Omit(clause.Associations).Save(country).Error; err != nil {
			return duplicateAsInvalid(fmt.Errorf("update country: %w", err), msgDuplicateCountry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return newCountryView(country), nil
}

// Delete removes the country; companies and applications pointing at it keep their row with the reference cleared.
func (s *CountryService) Delete(ctx context.Context, ownerID, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		country, err := findOwned[Country](tx, ownerID, id)
		if err != nil {
			return err
		}
		return deleteCountry(tx, country)
	})
}
