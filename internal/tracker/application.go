package tracker

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"jobtracker/internal/database"
	"jobtracker/internal/errcode"
)

// ApplicationInput is the write shape of an Application. Relations are referenced by id;
// the expanded objects of the read shape are ignored on input.
type ApplicationInput struct {
	CompanyID Optional[uint]   `json:"company_id"`
	CountryID Optional[uint]   `json:"country_id"`
	ResumeID  Optional[uint]   `json:"resume_id"`
	TagIDs    Optional[[]uint] `json:"tag_ids"`
	Position  Optional[string] `json:"position"`
	Link      Optional[string] `json:"link"`
	Note      Optional[string] `json:"note"`
	Status    Optional[string] `json:"status"`
}

type ApplicationService struct {
	db *gorm.DB
}

func NewApplicationService(db *gorm.DB) *ApplicationService {
	return &ApplicationService{db: db}
}

func (s *ApplicationService) Create(ctx context.Context, ownerID uint, in ApplicationInput) (*ApplicationView, error) {
	errs := &errcode.ValidationError{}
	checkRequiredRef(errs, "company_id", in.CompanyID, true)
	app := Application{
		OwnerID:  ownerID,
		Position: checkName(errs, "position", in.Position, true),
		Link:     checkLink(errs, "link", in.Link),
		Note:     checkNote(in.Note),
		Status:   checkStatus(errs, "status", in.Status, database.StatusApplied),
	}
	tagIDs := checkTagIDs(errs, "tag_ids", in.TagIDs)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		companyID, err := nullableRef[Company](tx, ownerID, in.CompanyID, "company_id", errs)
		if err != nil {
			return err
		}
		if companyID != nil {
			app.CompanyID = *companyID
		}
		if app.CountryID, err = nullableRef[Country](tx, ownerID, in.CountryID, "country_id", errs); err != nil {
			return err
		}
		if app.ResumeID, err = nullableRef[Resume](tx, ownerID, in.ResumeID, "resume_id", errs); err != nil {
			return err
		}
		tags, err := checkOwnedTags(tx, ownerID, tagIDs, "tag_ids", errs)
		if err != nil {
			return err
		}
		if err := errs.Err(); err != nil {
			return err
		}

		if err := tx.Omit(clause.Associations).Create(&app).Error; err != nil {
			return fmt.Errorf("create application: %w", err)
		}
		return replaceTags(tx, &app, tags)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, ownerID, app.ID)
}

func (s *ApplicationService) List(ctx context.Context, ownerID uint) ([]ApplicationView, error) {
	var apps []Application
	err := preloadApplication(s.db.WithContext(ctx), "").
		Scopes(ownedBy(ownerID)).
		Order("id").
		Find(&apps).Error
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	views := make([]ApplicationView, 0, len(apps))
	for i := range apps {
		views = append(views, *newApplicationView(&apps[i]))
	}
	return views, nil
}

func (s *ApplicationService) Get(ctx context.Context, ownerID, id uint) (*ApplicationView, error) {
	app, err := findOwned[Application](preloadApplication(s.db.WithContext(ctx), ""), ownerID, id)
	if err != nil {
		return nil, err
	}
	return newApplicationView(app), nil
}

func (s *ApplicationService) Update(ctx context.Context, ownerID, id uint, in ApplicationInput) (*ApplicationView, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		app, err := findOwned[Application](tx, ownerID, id)
		if err != nil {
			return err
		}

		errs := &errcode.ValidationError{}
		checkRequiredRef(errs, "company_id", in.CompanyID, false)
		position := checkName(errs, "position", in.Position, false)
		link := checkLink(errs, "link", in.Link)
		status := checkStatus(errs, "status", in.Status, app.Status)
		tagIDs := checkTagIDs(errs, "tag_ids", in.TagIDs)

		if in.CompanyID.Present() {
			companyID, err := nullableRef[Company](tx, ownerID, in.CompanyID, "company_id", errs)
			if err != nil {
				return err
			}
			if companyID != nil {
				app.CompanyID = *companyID
			}
		}
		if in.CountryID.Set {
			if app.CountryID, err = nullableRef[Country](tx, ownerID, in.CountryID, "country_id", errs); err != nil {
				return err
			}
		}
		if in.ResumeID.Set {
			if app.ResumeID, err = nullableRef[Resume](tx, ownerID, in.ResumeID, "resume_id", errs); err != nil {
				return err
			}
		}
		tags, err := checkOwnedTags(tx, ownerID, tagIDs, "tag_ids", errs)
		if err != nil {
			return err
		}
		if err := errs.Err(); err != nil {
			return err
		}

		if in.Position.Set {
			app.Position = position
		}
		if in.Link.Set {
			app.Link = link
		}
		if in.Note.Set {
			app.Note = checkNote(in.Note)
		}
		app.Status = status
		if err := tx.Omit(clause.Associations).Save(app).Error; err != nil {
			return fmt.Errorf("update application: %w", err)
		}
		if !in.TagIDs.Present() {
			return nil
		}
		return replaceTags(tx, app, tags)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, ownerID, id)
}

// Delete removes the application and its interviews.
func (s *ApplicationService) Delete(ctx context.Context, ownerID, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		app, err := findOwned[Application](tx, ownerID, id)
		if err != nil {
			return err
		}
		return deleteApplication(tx, app)
	})
}
